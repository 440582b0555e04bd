package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		node Node
		ok   bool
	}{
		{"root", Node{ID: "root", Type: NodeRoot, Stage: StageTesting}, true},
		{"root with parent", Node{ID: "root", Type: NodeRoot, Stage: StageTesting, ParentID: "x"}, false},
		{"empty id", Node{Type: NodePersona, Stage: StageTesting}, false},
		{"unknown type", Node{ID: "a", Type: "WIDGET", Stage: StageTesting}, false},
		{"unknown stage", Node{ID: "a", Type: NodePersona, Stage: "ARCHIVED"}, false},
		{"story without payload", Node{ID: "s", Type: NodeStory, Stage: StageTesting}, false},
		{"story with payload", Node{ID: "s", Type: NodeStory, Stage: StageTesting, Bundle: ContextBundle{Story: &StoryOption{Title: "t"}}}, true},
		{"hook without text", Node{ID: "h", Type: NodeHook, Stage: StageTesting}, false},
		{"creative payload on angle", Node{ID: "a", Type: NodeAngle, Stage: StageTesting, Creative: &CreativeData{}}, false},
		{"creative without payload", Node{ID: "c", Type: NodeCreative, Stage: StageTesting}, false},
		{"creative", Node{ID: "c", Type: NodeCreative, Stage: StageScaling, Creative: &CreativeData{Format: FormatMeme}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.node.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidNode), "got %v", err)
		})
	}
}

func TestRegistryActions(t *testing.T) {
	assert.True(t, Allows(NodeRoot, ActionExpandPersonas))
	assert.False(t, Allows(NodeRoot, ActionGenerateCreatives))
	assert.True(t, Allows(NodeHook, ActionWriteSalesLetter))
	assert.False(t, Allows(NodeSalesLetter, ActionGenerateCreatives))
	assert.False(t, Allows("WIDGET", ActionExpandPersonas))

	for _, typ := range []NodeType{NodeAngle, NodeStory, NodeBigIdea, NodeMechanism, NodeHook, NodeHVCO} {
		assert.True(t, AngleBearing(typ), typ)
	}
	assert.False(t, AngleBearing(NodePersona))
	assert.False(t, AngleBearing(NodeCreative))

	assert.True(t, Shortcut(NodeMechanism))
	assert.False(t, Shortcut(NodeAngle))
	assert.False(t, Shortcut(NodeHook))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, AspectTall, FormatIGStoryText.AspectRatio())
	assert.Equal(t, AspectTall, FormatHandheldTweet.AspectRatio())
	assert.Equal(t, AspectSquare, FormatMeme.AspectRatio())
	assert.Equal(t, AspectSquare, FormatCarouselPanorama.AspectRatio())

	assert.True(t, FormatCarouselPhotoDump.IsCarousel())
	assert.False(t, FormatLongText.IsCarousel())

	seen := map[CreativeFormat]bool{}
	for _, g := range FormatGroups {
		for _, f := range g.Formats {
			assert.False(t, seen[f], "format %q listed twice", f)
			seen[f] = true
		}
	}
}

func TestSelectFormats(t *testing.T) {
	got, err := SelectFormats([]CreativeFormat{FormatMeme, FormatPhoneNotes, FormatMeme})
	require.NoError(t, err)
	assert.Equal(t, []CreativeFormat{FormatMeme, FormatPhoneNotes}, got)

	_, err = SelectFormats([]CreativeFormat{FormatMeme, "bogus"})
	assert.ErrorIs(t, err, ErrInvalidNode)

	for _, g := range FormatGroups {
		for _, f := range g.Formats {
			assert.True(t, KnownFormat(f), f)
		}
	}
	assert.True(t, KnownFormat(FormatCarouselPanorama))
	assert.False(t, KnownFormat(""))
}

func TestCloneIsDeep(t *testing.T) {
	orig := Node{
		ID:   "n",
		Meta: Meta{"name": "Sam", "tags": []string{"a"}},
		Bundle: ContextBundle{
			Story: &StoryOption{Title: "t"},
			Offer: &MafiaOffer{Headline: "h", ValueStack: []string{"x"}},
		},
		Creative: &CreativeData{Format: FormatMeme},
	}
	c := orig.Clone()
	c.Meta["name"] = "Alex"
	c.Meta["tags"].([]string)[0] = "b"
	c.Bundle.Story.Title = "changed"
	c.Bundle.Offer.ValueStack[0] = "y"
	c.Creative.Format = FormatLongText

	assert.Equal(t, "Sam", orig.Meta.String("name"))
	assert.Equal(t, []string{"a"}, orig.Meta.Strings("tags"))
	assert.Equal(t, "t", orig.Bundle.Story.Title)
	assert.Equal(t, "x", orig.Bundle.Offer.ValueStack[0])
	assert.Equal(t, FormatMeme, orig.Creative.Format)
}

func TestMetaMergeAndProjectOffer(t *testing.T) {
	m := Meta{"name": "Sam", "profile": "p"}.Merge(Meta{"angle": "late nights", "name": "Alex"})
	assert.Equal(t, Meta{"name": "Alex", "profile": "p", "angle": "late nights"}, m)
	assert.Equal(t, Meta{"a": 1}, Meta(nil).Merge(Meta{"a": 1}))

	p := Project{Offer: "Buy 2 Get 1 Free"}
	assert.Equal(t, p, p.WithOffer(nil))

	got := p.WithOffer(&MafiaOffer{Headline: "Sleep or it's free", ValueStack: []string{"Gummies", "Guide"}, RiskReversal: "90 days", Scarcity: "First 100"})
	require.NotEqual(t, p.Offer, got.Offer)
	assert.Equal(t, "MAFIA OFFER HEADLINE: \"Sleep or it's free\". \nVALUE STACK: Gummies + Guide. \nRISK REVERSAL (GUARANTEE): 90 days. \nSCARCITY: First 100", got.Offer)

	assert.Equal(t, Edge{ID: "a-b", Source: "a", Target: "b"}, NewEdge("a", "b"))
}
