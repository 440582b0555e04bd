// Package creative renders ad creatives for an angle-bearing node: concept,
// copy, compliance note, image and, for carousel formats, the slide set.
package creative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/cost"
	"github.com/agenthands/funnelgraph/internal/core/graph"
	"github.com/agenthands/funnelgraph/internal/core/layout"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/core/propagation"
	"github.com/agenthands/funnelgraph/internal/core/throttle"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/logger"
)

const (
	descInitializing = "Initializing Generation..."
	descFailed       = "Generation Failed"
	descRegenFailed  = "Regeneration failed."

	complianceEmpty = "Compliance Check Failed"
	complianceError = "Error checking compliance."

	defaultCTA = "Learn More"
)

// SlideRole tells the image model where a carousel slide sits in the sequence.
type SlideRole struct {
	Role        string
	Instruction string
}

var DefaultSlides = []SlideRole{
	{Role: "Title Slide", Instruction: "This is the first slide (Hook). Focus on the problem or headline visual."},
	{Role: "Middle Slide", Instruction: "This is the middle slide (Value). Show the mechanism, process, or social proof detail."},
	{Role: "End Slide", Instruction: "This is the final slide (CTA). Show the result, product stack, or call to action."},
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type FormatFailure struct {
	Format model.CreativeFormat `json:"format"`
	NodeID string               `json:"nodeId"`
	Reason string               `json:"reason"`
}

// BatchReport is the result of one multi-format run. A failed format never
// aborts its siblings, so Created and Failed may both be non-empty.
type BatchReport struct {
	SourceID  string          `json:"sourceId"`
	Status    Status          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Created   []string        `json:"created,omitempty"`
	Succeeded []string        `json:"succeeded,omitempty"`
	Failed    []FormatFailure `json:"failed,omitempty"`
}

func (r *BatchReport) settle() {
	switch {
	case len(r.Created) == 0:
		r.Status = StatusSkipped
	case len(r.Failed) == 0:
		r.Status = StatusCompleted
	case len(r.Succeeded) == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}

type Pipeline struct {
	Store   *graph.Store
	Service generator.Service
	Rates   cost.Rates
	Grid    layout.Grid
	// ItemDelay spaces consecutive formats within one batch.
	ItemDelay time.Duration
	Slides    []SlideRole
	// SlideLimit caps concurrent slide renders; zero means one per slide.
	SlideLimit int
	Strict     bool
	NewID      func() string
	Log        *logger.Logger
}

func NewPipeline(store *graph.Store, svc generator.Service, cfg *config.Config, log *logger.Logger) *Pipeline {
	return &Pipeline{
		Store:      store,
		Service:    svc,
		Rates:      cfg.Pricing,
		Grid:       cfg.Layout.Creatives,
		ItemDelay:  cfg.Pipeline.ItemDelay(),
		Slides:     DefaultSlides,
		SlideLimit: cfg.Pipeline.CarouselSlides,
		Strict:     cfg.Pipeline.Strict,
		NewID:      uuid.NewString,
		Log:        logger.OrNop(log),
	}
}

// job is one creative being rendered.
type job struct {
	nodeID  string
	format  model.CreativeFormat
	project model.Project
	// base is the project without any attached offer; the sales-letter CTA
	// uses its plain offer text.
	base    model.Project
	source  model.Node
	persona model.Meta
	angle   string
}

// Generate creates one creative per format under sourceID and renders them
// one at a time through the throttle.
func (p *Pipeline) Generate(ctx context.Context, project model.Project, sourceID string, formats []model.CreativeFormat) (*BatchReport, error) {
	report := &BatchReport{SourceID: sourceID}

	src, err := p.Store.Get(sourceID)
	if err != nil {
		return p.skip(report, err)
	}
	if !model.AngleBearing(src.Type) {
		return p.skip(report, fmt.Errorf("%w: %s nodes cannot seed creatives", model.ErrPreconditionNotMet, src.Type))
	}
	formats, err = model.SelectFormats(formats)
	if err != nil {
		return report, err
	}
	if len(formats) == 0 {
		return p.skip(report, fmt.Errorf("%w: no formats selected", model.ErrPreconditionNotMet))
	}

	log := p.Log.With("source_id", sourceID)
	p.setLoading(sourceID, true)
	defer p.setLoading(sourceID, false)

	persona := propagation.PersonaContext(src)
	angle := propagation.RichAngle(src)
	jobs, err := p.place(src, persona, angle, formats)
	if err != nil {
		return report, err
	}
	for i := range jobs {
		jobs[i].project = propagation.ProjectFor(project, src)
		jobs[i].base = project
		report.Created = append(report.Created, jobs[i].nodeID)
	}

	err = throttle.Each(ctx, throttle.Every(p.ItemDelay), len(jobs), func(i int) {
		j := jobs[i]
		if err := p.render(ctx, j); err != nil {
			log.Warn("creative failed", "node_id", j.nodeID, "format", j.format, "error", err)
			p.markFailed(j.nodeID, descFailed)
			report.Failed = append(report.Failed, FormatFailure{Format: j.format, NodeID: j.nodeID, Reason: err.Error()})
			return
		}
		report.Succeeded = append(report.Succeeded, j.nodeID)
	})
	if err != nil {
		// Formats never reached stay as failed placeholders.
		for _, j := range jobs[len(report.Succeeded)+len(report.Failed):] {
			p.markFailed(j.nodeID, descFailed)
			report.Failed = append(report.Failed, FormatFailure{Format: j.format, NodeID: j.nodeID, Reason: err.Error()})
		}
	}

	report.settle()
	log.Info("creative batch finished", "status", report.Status, "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}

// place adds the loading placeholders in grid order, all or none.
func (p *Pipeline) place(src model.Node, persona model.Meta, angle string, formats []model.CreativeFormat) ([]job, error) {
	points := p.Grid.Place(layout.Point{X: src.X, Y: src.Y}, len(formats))
	meta := persona.Merge(model.Meta{"angle": angle})

	nodes := make([]model.Node, 0, len(formats))
	jobs := make([]job, 0, len(formats))
	for i, f := range formats {
		n := model.Node{
			ID:          fmt.Sprintf("creative-%s", p.NewID()),
			Type:        model.NodeCreative,
			Title:       string(f),
			Description: descInitializing,
			X:           points[i].X,
			Y:           points[i].Y,
			Stage:       model.StageTesting,
			Meta:        meta.Clone(),
			Bundle:      src.Bundle.Clone(),
			IsLoading:   true,
			Creative:    &model.CreativeData{Format: f, AspectRatio: f.AspectRatio()},
		}
		nodes = append(nodes, n)
		jobs = append(jobs, job{nodeID: n.ID, format: f, source: src, persona: persona, angle: angle})
	}
	if err := p.Store.AddAll(nodes, src.ID); err != nil {
		return nil, fmt.Errorf("place creatives: %w", err)
	}
	return jobs, nil
}

// render runs the full chain for one placeholder and writes the result in a
// single update.
func (p *Pipeline) render(ctx context.Context, j job) error {
	var u cost.Usage
	var concept model.CreativeConcept
	var ad model.AdCopy

	src := j.source
	hookChain := src.Type == model.NodeHook && src.Bundle.FullChain()

	conceptStep := func() error {
		p.progress(j.nodeID, "Art Director: Defining visual style...")
		res, err := p.Service.CreativeConcept(ctx, j.project, j.persona, j.angle, j.format)
		u.Add(res.InputTokens, res.OutputTokens)
		if err != nil {
			return fmt.Errorf("concept: %w", err)
		}
		concept = res.Data
		return nil
	}

	if hookChain {
		p.progress(j.nodeID, "Copywriter: Drafting long-form letter...")
		res, err := p.Service.SalesLetter(ctx, j.project, src.Bundle.Clone())
		u.Add(res.InputTokens, res.OutputTokens)
		if err != nil {
			return fmt.Errorf("sales letter: %w", err)
		}
		cta := j.base.Offer
		if cta == "" {
			cta = defaultCTA
		}
		ad = model.AdCopy{Headline: src.Bundle.Hook, PrimaryText: res.Data, CTA: cta}
	} else {
		if err := conceptStep(); err != nil {
			return err
		}
		p.progress(j.nodeID, "Copywriter: Writing ad copy...")
		res, err := p.Service.AdCopy(ctx, generator.CopyRequest{
			Project:   j.project,
			Persona:   j.persona,
			Concept:   concept,
			Angle:     j.angle,
			Format:    j.format,
			HVCOFlow:  src.Type == model.NodeHVCO,
			Mechanism: src.Bundle.Mechanism,
		})
		u.Add(res.InputTokens, res.OutputTokens)
		if err != nil {
			return fmt.Errorf("ad copy: %w", err)
		}
		ad = res.Data
	}

	if (hookChain || model.Shortcut(src.Type) || src.Type == model.NodeHook) && concept.VisualScene == "" {
		if err := conceptStep(); err != nil {
			return err
		}
	}

	ad.ComplianceNotes = p.compliance(ctx, ad, &u)

	p.progress(j.nodeID, "Visualizer: Rendering image...")
	img := generator.ImageRequest{
		Project:     j.project,
		Persona:     j.persona,
		Angle:       j.angle,
		Format:      j.format,
		Concept:     concept,
		AspectRatio: j.format.AspectRatio(),
	}
	res, err := p.Service.Image(ctx, img)
	u.Add(res.InputTokens, res.OutputTokens)
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if res.Data == "" {
		return fmt.Errorf("image: %w", model.ErrEmptyResult)
	}
	u.Images++

	var slides []string
	if j.format.IsCarousel() {
		p.progress(j.nodeID, "Visualizer: Rendering carousel slides...")
		var su cost.Usage
		slides, su = p.GenerateCarousel(ctx, img, p.Slides)
		u = u.Plus(su)
	}

	return p.Store.Update(j.nodeID, func(n *model.Node) {
		n.Creative = &model.CreativeData{
			Format:           j.format,
			AdCopy:           &ad,
			ImageURL:         res.Data,
			CarouselImages:   slides,
			Concept:          &concept,
			VariableIsolated: concept.Rationale,
			AspectRatio:      img.AspectRatio,
		}
		n.Description = excerpt(ad.PrimaryText)
		n.InputTokens = u.InputTokens
		n.OutputTokens = u.OutputTokens
		n.ImageCount = u.Images
		n.EstimatedCost = p.Rates.Of(u)
		n.IsLoading = false
	})
}

// compliance is advisory: its failure only changes the note.
func (p *Pipeline) compliance(ctx context.Context, ad model.AdCopy, u *cost.Usage) string {
	res, err := p.Service.Compliance(ctx, ad)
	u.Add(res.InputTokens, res.OutputTokens)
	switch {
	case errors.Is(err, model.ErrEmptyResult):
		return complianceEmpty
	case err != nil:
		p.Log.Warn("compliance check failed", "error", err)
		return complianceError
	}
	return res.Data
}

// GenerateCarousel renders one square image per role concurrently. A failed
// slide is dropped without cancelling the others, so the result holds at most
// len(roles) images in role order. Usage covers every attempted slide.
func (p *Pipeline) GenerateCarousel(ctx context.Context, req generator.ImageRequest, roles []SlideRole) ([]string, cost.Usage) {
	images := make([]string, len(roles))
	usages := make([]cost.Usage, len(roles))

	var g errgroup.Group
	if p.SlideLimit > 0 {
		g.SetLimit(p.SlideLimit)
	}
	for i, r := range roles {
		i, r := i, r
		g.Go(func() error {
			sr := req
			sr.AspectRatio = model.AspectSquare
			sr.Concept.VisualScene = fmt.Sprintf("%s. [CAROUSEL CONTEXT: %s - %s]", req.Concept.VisualScene, r.Role, r.Instruction)

			res, err := p.Service.Image(ctx, sr)
			usages[i].Add(res.InputTokens, res.OutputTokens)
			if err != nil || res.Data == "" {
				p.Log.Warn("carousel slide failed", "slide", r.Role, "error", err)
				return nil
			}
			usages[i].Images = 1
			images[i] = res.Data
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	var total cost.Usage
	for i := range roles {
		total = total.Plus(usages[i])
		if images[i] != "" {
			out = append(out, images[i])
		}
	}
	return out, total
}

// Regenerate reruns only the image step from the stored concept. Copy and
// description are untouched on success; the call's usage and one image are
// added to the node's totals. An empty aspect keeps the current one, and an
// empty reference falls back to the project's product image.
func (p *Pipeline) Regenerate(ctx context.Context, project model.Project, nodeID, aspect, reference string) (*model.Node, error) {
	n, err := p.Store.Get(nodeID)
	if err != nil {
		return nil, p.reject(nodeID, err)
	}
	if n.Type != model.NodeCreative || n.Creative == nil {
		return nil, p.reject(nodeID, fmt.Errorf("%w: node %s is not a creative", model.ErrPreconditionNotMet, nodeID))
	}
	if aspect == "" {
		aspect = n.Creative.AspectRatio
	}
	if aspect == "" {
		aspect = n.Creative.Format.AspectRatio()
	}
	var concept model.CreativeConcept
	if n.Creative.Concept != nil {
		concept = *n.Creative.Concept
	}
	angle := n.Meta.String("angle")
	if angle == "" {
		angle = n.Title
	}

	p.setLoading(nodeID, true)
	res, err := p.Service.Image(ctx, generator.ImageRequest{
		Project:     propagation.ProjectFor(project, n),
		Persona:     propagation.PersonaContext(n),
		Angle:       angle,
		Format:      n.Creative.Format,
		Concept:     concept,
		AspectRatio: aspect,
		Reference:   reference,
	})
	if err == nil && res.Data == "" {
		err = fmt.Errorf("image: %w", model.ErrEmptyResult)
	}
	if err != nil {
		p.Log.Warn("regeneration failed", "node_id", nodeID, "error", err)
		p.markFailed(nodeID, descRegenFailed)
		return nil, err
	}

	err = p.Store.Update(nodeID, func(n *model.Node) {
		n.Creative.ImageURL = res.Data
		n.Creative.AspectRatio = aspect
		n.InputTokens += float64(res.InputTokens)
		n.OutputTokens += float64(res.OutputTokens)
		n.ImageCount++
		n.EstimatedCost = p.Rates.Estimate(n.InputTokens, n.OutputTokens, n.ImageCount)
		n.IsLoading = false
	})
	if err != nil {
		return nil, err
	}
	out, err := p.Store.Get(nodeID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Pipeline) skip(r *BatchReport, err error) (*BatchReport, error) {
	r.Status = StatusSkipped
	r.Reason = err.Error()
	if p.Strict {
		return r, fmt.Errorf("generate creatives on %s: %w", r.SourceID, err)
	}
	p.Log.Debug("creative batch skipped", "source_id", r.SourceID, "reason", r.Reason)
	return r, nil
}

// reject applies the strict switch to single-node operations: lenient mode
// logs and returns nil.
func (p *Pipeline) reject(nodeID string, err error) error {
	if p.Strict {
		return fmt.Errorf("regenerate %s: %w", nodeID, err)
	}
	p.Log.Debug("regeneration skipped", "node_id", nodeID, "reason", err)
	return nil
}

func (p *Pipeline) progress(id, desc string) {
	_ = p.Store.Update(id, func(n *model.Node) { n.Description = desc })
}

func (p *Pipeline) markFailed(id, desc string) {
	_ = p.Store.Update(id, func(n *model.Node) {
		n.IsLoading = false
		n.Description = desc
	})
}

func (p *Pipeline) setLoading(id string, on bool) {
	if err := p.Store.Update(id, func(n *model.Node) { n.IsLoading = on }); err != nil && !errors.Is(err, model.ErrNotFound) {
		p.Log.Warn("loading flag not updated", "node_id", id, "error", err)
	}
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) > 100 {
		r = r[:100]
	}
	return string(r) + "..."
}
