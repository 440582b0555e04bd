package expansion

import (
	"context"
	"errors"
	"strconv"
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

func newEngine(t *testing.T, svc generator.Service) (*Engine, *graph.Store) {
	t.Helper()
	store := graph.NewStore()
	require.NoError(t, store.Add(model.Node{
		ID: "root", Type: model.NodeRoot, Title: project.ProductName, Stage: model.StageTesting,
	}, ""))

	e := NewEngine(store, svc, config.Default(), logger.NewNop())
	var seq atomic.Int64
	e.NewID = func() string { return strconv.FormatInt(seq.Add(1), 10) }
	return e, store
}

func edgesFrom(s *graph.Store, id string) int {
	n := 0
	for _, e := range s.Edges() {
		if e.Source == id {
			n++
		}
	}
	return n
}

func TestExpandPersonasFromRoot(t *testing.T) {
	e, store := newEngine(t, &generator.MockService{})

	out, err := e.Expand(context.Background(), project, model.ActionExpandPersonas, "root")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	require.Len(t, out.Created, 3)
	assert.Equal(t, "persona-1", out.Created[0])

	kids, err := store.Children("root")
	require.NoError(t, err)
	require.Len(t, kids, 3)
	assert.Equal(t, 3, edgesFrom(store, "root"))

	// 300 in / 600 out split three ways.
	wantCost := e.Rates.Estimate(100, 200, 0)
	ys := []float64{}
	for _, k := range kids {
		assert.Equal(t, model.NodePersona, k.Type)
		assert.Equal(t, 600.0, k.X)
		assert.Equal(t, 100.0, k.InputTokens)
		assert.Equal(t, 200.0, k.OutputTokens)
		assert.InDelta(t, wantCost, k.EstimatedCost, 1e-12)
		assert.InDelta(t, e.Rates.Estimate(k.InputTokens, k.OutputTokens, k.ImageCount), k.EstimatedCost, 1e-12)
		assert.NotEmpty(t, k.Meta.String("name"))
		ys = append(ys, k.Y)
	}
	assert.Equal(t, []float64{-800, 0, 800}, ys)
	assert.Equal(t, "Ships at 2AM", kids[0].Description)

	root, _ := store.Get("root")
	assert.False(t, root.IsLoading)
}

func TestAnglesMergePersonaMeta(t *testing.T) {
	e, store := newEngine(t, &generator.MockService{})
	ctx := context.Background()

	out, err := e.Expand(ctx, project, model.ActionExpandPersonas, "root")
	require.NoError(t, err)
	persona := out.Created[0]

	out, err = e.Expand(ctx, project, model.ActionExpandAngles, persona)
	require.NoError(t, err)
	require.Len(t, out.Created, 2)

	angle, _ := store.Get(out.Created[0])
	assert.Equal(t, "Night Owl Coder", angle.Meta.String("name"))
	assert.Equal(t, "Stop wasting money on coffee", angle.Meta.String("headline"))
	assert.Equal(t, "Hook: Caffeine crash", angle.Description)
	assert.Equal(t, "TIER 1", angle.TestingTier)
	assert.Equal(t, 1150.0, angle.X)
}

func TestStoryChainCarriesPayloads(t *testing.T) {
	svc := &generator.MockService{}
	e, store := newEngine(t, svc)
	ctx := context.Background()

	step := func(action model.Action, from string) string {
		out, err := e.Expand(ctx, project, action, from)
		require.NoError(t, err)
		require.Equal(t, StatusCompleted, out.Status, out.Reason)
		require.NotEmpty(t, out.Created)
		assert.Equal(t, len(out.Created), edgesFrom(store, from))
		return out.Created[0]
	}

	persona := step(model.ActionExpandPersonas, "root")
	story := step(model.ActionStartStoryFlow, persona)
	idea := step(model.ActionGenerateBigIdeas, story)
	mech := step(model.ActionGenerateMechanism, idea)
	hook := step(model.ActionGenerateHooks, mech)

	h, err := store.Get(hook)
	require.NoError(t, err)
	assert.Equal(t, model.NodeHook, h.Type)
	assert.Equal(t, "Hook Variation", h.Title)
	assert.Equal(t, "Doctors hate this gummy", h.Bundle.Hook)
	require.NotNil(t, h.Bundle.Story)
	require.NotNil(t, h.Bundle.BigIdea)
	require.NotNil(t, h.Bundle.Mechanism)
	assert.Equal(t, "3AM exam panic", h.Bundle.Story.Title)
	assert.Equal(t, "Calm-Focus Loop", h.Bundle.Mechanism.ScientificPseudo)
	assert.Equal(t, "Night Owl Coder", h.Meta.String("name"))
	assert.True(t, h.Bundle.FullChain())

	letter := step(model.ActionWriteSalesLetter, hook)
	l, _ := store.Get(letter)
	assert.Equal(t, model.NodeSalesLetter, l.Type)
	assert.Contains(t, l.Bundle.SalesLetter, "Doctors hate this gummy")
	assert.Equal(t, 1, svc.Count("SalesLetter"))
}

func TestHVCOUsesPainPoint(t *testing.T) {
	var gotPain string
	svc := &generator.MockService{
		HVCOIdeasFn: func(p model.Project, pain string) (generator.Result[[]model.HVCOOption], error) {
			gotPain = pain
			return generator.Result[[]model.HVCOOption]{Data: []model.HVCOOption{{Title: "Cheat Sheet", Format: "PDF", Hook: "now"}}}, nil
		},
	}
	e, store := newEngine(t, svc)
	out, err := e.Expand(context.Background(), project, model.ActionExpandPersonas, "root")
	require.NoError(t, err)

	out, err = e.Expand(context.Background(), project, model.ActionGenerateHVCO, out.Created[0])
	require.NoError(t, err)
	require.Len(t, out.Created, 1)
	assert.Equal(t, "3PM crash", gotPain)

	n, _ := store.Get(out.Created[0])
	assert.Equal(t, "Cheat Sheet", n.Meta.String("hvcoTitle"))
	assert.Equal(t, "Night Owl Coder", n.Meta.String("name"))
	assert.Equal(t, "Lead Magnet (Blue Ocean)", n.Description)
}

func TestPreconditionLenientAndStrict(t *testing.T) {
	svc := &generator.MockService{}
	e, store := newEngine(t, svc)
	ctx := context.Background()

	out, err := e.Expand(ctx, project, model.ActionGenerateMechanism, "root")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Contains(t, out.Reason, "big idea")

	out, err = e.Expand(ctx, project, model.ActionExpandAngles, "root")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)

	out, err = e.Expand(ctx, project, model.ActionExpandPersonas, "ghost-id")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, svc.Calls)
	assert.Equal(t, 1, store.Len())

	e.Strict = true
	_, err = e.Expand(ctx, project, model.ActionGenerateHooks, "root")
	assert.ErrorIs(t, err, model.ErrPreconditionNotMet)

	_, err = e.Expand(ctx, project, model.ActionExpandPersonas, "ghost-id")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, svc.Calls)
}

func TestServiceFailureCreatesNothing(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := &generator.MockService{
		PersonasFn: func(model.Project) (generator.Result[[]model.Persona], error) {
			return generator.Result[[]model.Persona]{}, errors.Join(model.ErrServiceFailure, boom)
		},
	}
	e, store := newEngine(t, svc)

	out, err := e.Expand(context.Background(), project, model.ActionExpandPersonas, "root")
	assert.ErrorIs(t, err, model.ErrServiceFailure)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, store.Edges())

	root, _ := store.Get("root")
	assert.False(t, root.IsLoading)
}

func TestIDCollisionCreatesNothing(t *testing.T) {
	e, store := newEngine(t, &generator.MockService{})
	e.NewID = func() string { return "same" }

	out, err := e.Expand(context.Background(), project, model.ActionExpandPersonas, "root")
	assert.ErrorIs(t, err, model.ErrDuplicateNode)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.Created)
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, store.Edges())

	root, _ := store.Get("root")
	assert.False(t, root.IsLoading)
}

func TestEmptyResultCreatesNothing(t *testing.T) {
	svc := &generator.MockService{
		StoryOptionsFn: func(model.Project, model.Meta) (generator.Result[[]model.StoryOption], error) {
			return generator.Result[[]model.StoryOption]{InputTokens: 10}, nil
		},
	}
	e, store := newEngine(t, svc)

	_, err := e.Expand(context.Background(), project, model.ActionStartStoryFlow, "root")
	assert.ErrorIs(t, err, model.ErrEmptyResult)
	assert.Equal(t, 1, store.Len())
}

func TestCraftOfferAttachesToNodeAndCarriesDown(t *testing.T) {
	svc := &generator.MockService{}
	e, store := newEngine(t, svc)
	ctx := context.Background()

	out, _ := e.Expand(ctx, project, model.ActionExpandPersonas, "root")
	out, _ = e.Expand(ctx, project, model.ActionExpandAngles, out.Created[0])
	angleID := out.Created[0]
	before, _ := store.Get(angleID)

	out, err := e.Expand(ctx, project, model.ActionCraftOffer, angleID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Empty(t, out.Created)

	angle, _ := store.Get(angleID)
	require.NotNil(t, angle.Bundle.Offer)
	assert.Equal(t, "Ace finals or it's free", angle.Bundle.Offer.Headline)
	assert.Equal(t, before.InputTokens+40, angle.InputTokens)
	assert.InDelta(t, e.Rates.Estimate(angle.InputTokens, angle.OutputTokens, 0), angle.EstimatedCost, 1e-12)

	out, err = e.Expand(ctx, project, model.ActionGenerateHVCO, angleID)
	require.NoError(t, err)
	hvco, _ := store.Get(out.Created[0])
	require.NotNil(t, hvco.Bundle.Offer)

	// Root is not an offer carrier.
	out, err = e.Expand(ctx, project, model.ActionCraftOffer, "root")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
}

// Expansions of the same node are not serialised: both batches land and the
// loading flag reflects whichever update ran last.
func TestConcurrentExpansionOfSameNode(t *testing.T) {
	e, store := newEngine(t, &generator.MockService{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Expand(context.Background(), project, model.ActionExpandPersonas, "root")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	kids, err := store.Children("root")
	require.NoError(t, err)
	assert.Len(t, kids, 6)
	assert.Equal(t, 6, edgesFrom(store, "root"))

	root, _ := store.Get("root")
	assert.False(t, root.IsLoading)
}

func TestUnknownActionIsError(t *testing.T) {
	e, _ := newEngine(t, &generator.MockService{})
	_, err := e.Expand(context.Background(), project, model.ActionPromoteCreative, "root")
	assert.Error(t, err)
	assert.False(t, Handles(model.ActionPromoteCreative))
	assert.True(t, Handles(model.ActionCraftOffer))
}
