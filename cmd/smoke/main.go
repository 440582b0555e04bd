// Command smoke drives a running server through one expansion chain and a
// single creative, printing each step.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("SMOKE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Minute}

	fmt.Println("Starting smoke run against", baseURL)

	var health map[string]any
	step(client, "1. Health", http.MethodGet, baseURL+"/health", nil, &health)

	var personas actionResult
	step(client, "2. Expanding personas", http.MethodPost, baseURL+"/actions",
		map[string]string{"action": "expand_personas", "nodeId": "root"}, &personas)
	if len(personas.Created) == 0 {
		fail("no personas created")
	}

	var angles actionResult
	step(client, "3. Expanding angles", http.MethodPost, baseURL+"/actions",
		map[string]string{"action": "expand_angles", "nodeId": personas.Created[0]}, &angles)
	if len(angles.Created) == 0 {
		fail("no angles created")
	}

	var creatives actionResult
	step(client, "4. Generating one creative", http.MethodPost, baseURL+"/nodes/"+angles.Created[0]+"/creatives",
		map[string][]string{"formats": {"Meme"}}, &creatives)
	if creatives.Status != "completed" {
		fail("creative batch status " + creatives.Status)
	}

	var graph struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	step(client, "5. Reading lab graph", http.MethodGet, baseURL+"/graph?view=lab", nil, &graph)
	fmt.Printf("Lab has %d nodes and %d edges\n", len(graph.Nodes), len(graph.Edges))
	fmt.Println("PASSED")
}

type actionResult struct {
	Status  string   `json:"status"`
	Reason  string   `json:"reason"`
	Created []string `json:"created"`
}

func step(client *http.Client, name, method, url string, payload, out any) {
	fmt.Println(name + "...")
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			fail(err.Error())
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fail(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fail(err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fail(fmt.Sprintf("%s returned %d: %s", name, resp.StatusCode, raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		fail(fmt.Sprintf("%s: decode response: %v", name, err))
	}
}

func fail(msg string) {
	fmt.Println("FAILED:", msg)
	os.Exit(1)
}
