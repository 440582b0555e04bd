package model

import "fmt"

// Edge is a directed parent → child link.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func NewEdge(source, target string) Edge {
	return Edge{ID: fmt.Sprintf("%s-%s", source, target), Source: source, Target: target}
}
