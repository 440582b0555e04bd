package creative

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/graph"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var project = config.Default().Project

func newPipeline(t *testing.T, svc generator.Service, sources ...model.Node) (*Pipeline, *graph.Store) {
	t.Helper()
	store := graph.NewStore()
	require.NoError(t, store.Add(model.Node{ID: "root", Type: model.NodeRoot, Title: "Zenith", Stage: model.StageTesting}, ""))
	for _, n := range sources {
		require.NoError(t, store.Add(n, "root"))
	}

	cfg := config.Default()
	cfg.Pipeline.ItemDelayMS = 0
	p := NewPipeline(store, svc, cfg, logger.NewNop())
	var seq atomic.Int64
	p.NewID = func() string { return strconv.FormatInt(seq.Add(1), 10) }
	return p, store
}

func angleNode() model.Node {
	return model.Node{
		ID: "angle-1", Type: model.NodeAngle, Title: "Stop the 3PM crash", Stage: model.StageTesting,
		X: 1150, Y: 0,
		Meta: model.Meta{"name": "Night Owl Coder", "profile": "Ships at 2AM"},
	}
}

func hookNode() model.Node {
	return model.Node{
		ID: "hook-1", Type: model.NodeHook, Title: "Hook Variation", Stage: model.StageTesting,
		Meta: model.Meta{"name": "Night Owl Coder"},
		Bundle: model.ContextBundle{
			Story:     &model.StoryOption{ID: "story-1", Title: "3AM deploy", Narrative: "n", EmotionalTheme: "dread"},
			BigIdea:   &model.BigIdeaOption{ID: "idea-1", Headline: "Coffee is a loan", Concept: "c", TargetBelief: "b"},
			Mechanism: &model.MechanismOption{ID: "mech-1", UMP: "spike", UMS: "steady", ScientificPseudo: "Calm-Focus Loop"},
			Hook:      "Your coffee is lying to you",
		},
	}
}

func TestGenerateTwoFormatsWithOneImageFailure(t *testing.T) {
	calls := 0
	svc := &generator.MockService{
		ImageFn: func(req generator.ImageRequest) (generator.Result[string], error) {
			calls++
			if calls == 2 {
				return generator.Result[string]{InputTokens: 20}, errors.Join(model.ErrServiceFailure, errors.New("quota"))
			}
			return generator.Result[string]{Data: "data:image/png;base64,aW1n", InputTokens: 20}, nil
		},
	}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme, model.FormatLongText})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, []string{"creative-1", "creative-2"}, report.Created)
	assert.Equal(t, []string{"creative-1"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, model.FormatLongText, report.Failed[0].Format)

	ok, err := store.Get("creative-1")
	require.NoError(t, err)
	assert.False(t, ok.IsLoading)
	assert.Equal(t, "data:image/png;base64,aW1n", ok.Creative.ImageURL)
	assert.Equal(t, "I used to need four coffees to get through a sprint....", ok.Description)
	assert.Equal(t, "Compliant", ok.Creative.AdCopy.ComplianceNotes)
	assert.Equal(t, "Isolate the late-night struggle", ok.Creative.VariableIsolated)
	assert.Equal(t, "Desk at 3AM lit by a laptop", ok.Creative.Concept.VisualScene)
	assert.Equal(t, 1, ok.ImageCount)
	// concept 100/100 + copy 100/100 + compliance 10/2 + image 20/0
	assert.Equal(t, 230.0, ok.InputTokens)
	assert.Equal(t, 202.0, ok.OutputTokens)
	assert.InDelta(t, p.Rates.Estimate(230, 202, 1), ok.EstimatedCost, 1e-12)
	assert.Contains(t, ok.Meta.String("angle"), "Stop the 3PM crash")
	assert.Equal(t, "Night Owl Coder", ok.Meta.String("name"))

	failed, err := store.Get("creative-2")
	require.NoError(t, err)
	assert.False(t, failed.IsLoading)
	assert.Equal(t, "Generation Failed", failed.Description)
	assert.Empty(t, failed.Creative.ImageURL)

	src, _ := store.Get("angle-1")
	assert.False(t, src.IsLoading)

	// Grid: first row, gap 550 and column spacing 350.
	assert.Equal(t, 1700.0, ok.X)
	assert.Equal(t, 2050.0, failed.X)
	assert.Equal(t, ok.Y, failed.Y)
}

func TestEmptyImageFailsFormat(t *testing.T) {
	svc := &generator.MockService{
		ImageFn: func(generator.ImageRequest) (generator.Result[string], error) {
			return generator.Result[string]{}, nil
		},
	}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Status)
	n, _ := store.Get(report.Created[0])
	assert.Equal(t, "Generation Failed", n.Description)
}

func TestComplianceIsAdvisory(t *testing.T) {
	svc := &generator.MockService{
		ComplianceFn: func(model.AdCopy) (generator.Result[string], error) {
			return generator.Result[string]{}, errors.Join(model.ErrServiceFailure, errors.New("timeout"))
		},
	}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	n, _ := store.Get(report.Created[0])
	assert.Equal(t, "Error checking compliance.", n.Creative.AdCopy.ComplianceNotes)
}

func TestTallFormatsUseTallAspect(t *testing.T) {
	var mu sync.Mutex
	var aspects []string
	svc := &generator.MockService{
		ImageFn: func(req generator.ImageRequest) (generator.Result[string], error) {
			mu.Lock()
			aspects = append(aspects, req.AspectRatio)
			mu.Unlock()
			return generator.Result[string]{Data: "data:image/png;base64,aW1n"}, nil
		},
	}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatIGStoryText, model.FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, []string{"9:16", "1:1"}, aspects)

	n, _ := store.Get(report.Created[0])
	assert.Equal(t, "9:16", n.Creative.AspectRatio)
}

func TestCarouselKeepsSurvivingSlides(t *testing.T) {
	svc := &generator.MockService{
		ImageFn: func(req generator.ImageRequest) (generator.Result[string], error) {
			if strings.Contains(req.Concept.VisualScene, "Middle Slide") {
				return generator.Result[string]{InputTokens: 5}, errors.Join(model.ErrServiceFailure, errors.New("blocked"))
			}
			return generator.Result[string]{Data: "img:" + req.AspectRatio, InputTokens: 5}, nil
		},
	}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatCarouselEducational})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)

	n, _ := store.Get(report.Created[0])
	require.Len(t, n.Creative.CarouselImages, 2)
	for _, img := range n.Creative.CarouselImages {
		assert.Equal(t, "img:1:1", img)
	}
	// Main image plus two surviving slides.
	assert.Equal(t, 3, n.ImageCount)
	assert.Equal(t, 4, svc.Count("Image"))
}

func TestGenerateCarouselSlideContext(t *testing.T) {
	var mu sync.Mutex
	scenes := map[string]bool{}
	svc := &generator.MockService{
		ImageFn: func(req generator.ImageRequest) (generator.Result[string], error) {
			mu.Lock()
			scenes[req.Concept.VisualScene] = true
			mu.Unlock()
			return generator.Result[string]{Data: "x", InputTokens: 7, OutputTokens: 1}, nil
		},
	}
	p, _ := newPipeline(t, svc)

	req := generator.ImageRequest{Concept: model.CreativeConcept{VisualScene: "Desk"}, AspectRatio: "9:16"}
	images, u := p.GenerateCarousel(context.Background(), req, DefaultSlides)
	assert.Len(t, images, 3)
	assert.Equal(t, 21.0, u.InputTokens)
	assert.Equal(t, 3.0, u.OutputTokens)
	assert.Equal(t, 3, u.Images)
	assert.True(t, scenes["Desk. [CAROUSEL CONTEXT: Title Slide - This is the first slide (Hook). Focus on the problem or headline visual.]"])

	// All slides failing yields no images, never more than the roles asked for.
	svc.ImageFn = func(generator.ImageRequest) (generator.Result[string], error) {
		return generator.Result[string]{}, errors.New("down")
	}
	images, u = p.GenerateCarousel(context.Background(), req, DefaultSlides[:2])
	assert.Empty(t, images)
	assert.Equal(t, 0, u.Images)
}

func TestHookWithFullChainUsesSalesLetter(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, hookNode())

	report, err := p.Generate(context.Background(), project, "hook-1", []model.CreativeFormat{model.FormatLongText})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, report.Status)

	n, _ := store.Get(report.Created[0])
	ad := n.Creative.AdCopy
	assert.Equal(t, "Your coffee is lying to you", ad.Headline)
	assert.True(t, strings.HasPrefix(ad.PrimaryText, "**Your coffee is lying to you**"))
	assert.Equal(t, project.Offer, ad.CTA)
	assert.Equal(t, 0, svc.Count("AdCopy"))
	assert.Equal(t, 1, svc.Count("SalesLetter"))
	// The letter brings no visual, so the concept step still runs.
	assert.Equal(t, 1, svc.Count("CreativeConcept"))
	assert.NotNil(t, n.Creative.Concept)
	assert.Equal(t, "Calm-Focus Loop", n.Bundle.Mechanism.ScientificPseudo)
}

func TestShortcutRerunsConceptWithoutScene(t *testing.T) {
	calls := 0
	svc := &generator.MockService{
		CreativeConceptFn: func(model.Project, model.Meta, string, model.CreativeFormat) (generator.Result[model.CreativeConcept], error) {
			calls++
			if calls == 1 {
				return generator.Result[model.CreativeConcept]{Data: model.CreativeConcept{VisualStyle: "flat"}}, nil
			}
			return generator.Result[model.CreativeConcept]{Data: model.CreativeConcept{VisualScene: "Lab bench"}}, nil
		},
	}
	mech := model.Node{
		ID: "mech-1", Type: model.NodeMechanism, Title: "Calm-Focus Loop", Stage: model.StageTesting,
		Bundle: model.ContextBundle{Mechanism: &model.MechanismOption{ScientificPseudo: "Calm-Focus Loop", UMS: "steady", UMP: "spike"}},
	}
	p, store := newPipeline(t, svc, mech)

	report, err := p.Generate(context.Background(), project, "mech-1", []model.CreativeFormat{model.FormatMechanismXRay})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	n, _ := store.Get(report.Created[0])
	assert.Equal(t, "Lab bench", n.Creative.Concept.VisualScene)
	assert.Equal(t, "General Audience", n.Meta.String("name"))
	assert.Contains(t, n.Meta.String("angle"), "[STRATEGY CONTEXT: Mechanism Name: \"Calm-Focus Loop\".")
}

func TestMafiaOfferReachesEveryCall(t *testing.T) {
	var mu sync.Mutex
	var offers []string
	record := func(p model.Project) {
		mu.Lock()
		offers = append(offers, p.Offer)
		mu.Unlock()
	}
	svc := &generator.MockService{}
	svc.CreativeConceptFn = func(p model.Project, _ model.Meta, _ string, _ model.CreativeFormat) (generator.Result[model.CreativeConcept], error) {
		record(p)
		return generator.Result[model.CreativeConcept]{Data: model.CreativeConcept{VisualScene: "s"}}, nil
	}
	svc.AdCopyFn = func(req generator.CopyRequest) (generator.Result[model.AdCopy], error) {
		record(req.Project)
		return generator.Result[model.AdCopy]{Data: model.AdCopy{PrimaryText: "t"}}, nil
	}
	svc.ImageFn = func(req generator.ImageRequest) (generator.Result[string], error) {
		record(req.Project)
		return generator.Result[string]{Data: "i"}, nil
	}

	src := angleNode()
	src.Bundle.Offer = &model.MafiaOffer{Headline: "Ace finals or it's free", ValueStack: []string{"a", "b"}, RiskReversal: "r", Scarcity: "s"}
	p, _ := newPipeline(t, svc, src)

	_, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	require.Len(t, offers, 3)
	for _, o := range offers {
		assert.True(t, strings.HasPrefix(o, `MAFIA OFFER HEADLINE: "Ace finals or it's free".`), o)
		assert.Contains(t, o, "VALUE STACK: a + b.")
	}
}

func TestGenerateSkipsNonAngleSources(t *testing.T) {
	p, store := newPipeline(t, &generator.MockService{})

	report, err := p.Generate(context.Background(), project, "root", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Status)
	assert.Equal(t, 1, store.Len())

	report, err = p.Generate(context.Background(), project, "missing", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Status)

	p.Strict = true
	_, err = p.Generate(context.Background(), project, "root", []model.CreativeFormat{model.FormatMeme})
	assert.ErrorIs(t, err, model.ErrPreconditionNotMet)
	_, err = p.Generate(context.Background(), project, "missing", nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGenerateRejectsUnknownFormats(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, angleNode())

	_, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{"bogus", "bogus"})
	assert.ErrorIs(t, err, model.ErrInvalidNode)
	_, err = p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme, "bogus"})
	assert.ErrorIs(t, err, model.ErrInvalidNode)

	assert.Equal(t, 2, store.Len())
	assert.Zero(t, svc.Count("CreativeConcept"))
	assert.Zero(t, svc.Count("Image"))
}

func TestGenerateDropsRepeatedFormats(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1",
		[]model.CreativeFormat{model.FormatMeme, model.FormatLongText, model.FormatMeme})
	require.NoError(t, err)
	require.Equal(t, []string{"creative-1", "creative-2"}, report.Created)
	assert.Equal(t, 2, svc.Count("Image"))

	first, _ := store.Get("creative-1")
	second, _ := store.Get("creative-2")
	assert.Equal(t, "Meme", first.Title)
	assert.Equal(t, "Long Text", second.Title)
}

func TestPlacementCollisionLeavesNoPlaceholders(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, angleNode())
	p.NewID = func() string { return "1" }

	_, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme, model.FormatLongText})
	assert.ErrorIs(t, err, model.ErrDuplicateNode)
	assert.Equal(t, 2, store.Len())
	assert.Zero(t, svc.Count("Image"))

	src, _ := store.Get("angle-1")
	assert.False(t, src.IsLoading)
}

func TestRegenerateKeepsCopyAndAddsDelta(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, angleNode())

	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	id := report.Created[0]
	before, _ := store.Get(id)

	var seen generator.ImageRequest
	svc.ImageFn = func(req generator.ImageRequest) (generator.Result[string], error) {
		seen = req
		return generator.Result[string]{Data: "data:image/png;base64,bmV3", InputTokens: 40, OutputTokens: 4}, nil
	}

	after, err := p.Regenerate(context.Background(), project, id, "9:16", "")
	require.NoError(t, err)
	require.NotNil(t, after)

	assert.Equal(t, "data:image/png;base64,bmV3", after.Creative.ImageURL)
	assert.Equal(t, "9:16", after.Creative.AspectRatio)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.Creative.AdCopy, after.Creative.AdCopy)
	assert.Equal(t, before.InputTokens+40, after.InputTokens)
	assert.Equal(t, before.OutputTokens+4, after.OutputTokens)
	assert.Equal(t, before.ImageCount+1, after.ImageCount)
	assert.InDelta(t, p.Rates.Estimate(after.InputTokens, after.OutputTokens, after.ImageCount), after.EstimatedCost, 1e-12)
	assert.False(t, after.IsLoading)
	assert.Equal(t, *before.Creative.Concept, seen.Concept)
	assert.Equal(t, "9:16", seen.AspectRatio)

	assert.Empty(t, seen.Reference)

	// An empty aspect keeps the stored one; an uploaded reference is forwarded.
	again, err := p.Regenerate(context.Background(), project, id, "", "data:image/png;base64,cmVm")
	require.NoError(t, err)
	assert.Equal(t, "9:16", again.Creative.AspectRatio)
	assert.Equal(t, "data:image/png;base64,cmVm", seen.Reference)
}

func TestRegenerateFailure(t *testing.T) {
	svc := &generator.MockService{}
	p, store := newPipeline(t, svc, angleNode())
	report, err := p.Generate(context.Background(), project, "angle-1", []model.CreativeFormat{model.FormatMeme})
	require.NoError(t, err)
	id := report.Created[0]
	before, _ := store.Get(id)

	svc.ImageFn = func(generator.ImageRequest) (generator.Result[string], error) {
		return generator.Result[string]{}, nil
	}
	_, err = p.Regenerate(context.Background(), project, id, "", "")
	assert.ErrorIs(t, err, model.ErrEmptyResult)

	n, _ := store.Get(id)
	assert.Equal(t, "Regeneration failed.", n.Description)
	assert.Equal(t, before.Creative.ImageURL, n.Creative.ImageURL)
	assert.Equal(t, before.ImageCount, n.ImageCount)
	assert.False(t, n.IsLoading)

	// Non-creatives are skipped, or rejected in strict mode.
	got, err := p.Regenerate(context.Background(), project, "angle-1", "", "")
	assert.NoError(t, err)
	assert.Nil(t, got)
	p.Strict = true
	_, err = p.Regenerate(context.Background(), project, "angle-1", "", "")
	assert.ErrorIs(t, err, model.ErrPreconditionNotMet)
}
