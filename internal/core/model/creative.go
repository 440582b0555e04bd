package model

import (
	"fmt"
	"slices"
)

type CreativeFormat string

const (
	FormatMeme                 CreativeFormat = "Meme"
	FormatUglyVisual           CreativeFormat = "Ugly Visual"
	FormatRedditThread         CreativeFormat = "Reddit Thread"
	FormatTwitterRepost        CreativeFormat = "Twitter Repost"
	FormatOldMeVsNewMe         CreativeFormat = "Old Me vs New Me"
	FormatPressFeature         CreativeFormat = "Press Feature"
	FormatMSPaint              CreativeFormat = "MS Paint"
	FormatHandheldTweet        CreativeFormat = "Handheld Tweet"
	FormatEducationalRant      CreativeFormat = "Educational Rant"
	FormatIGStoryText          CreativeFormat = "IG Story Text Overlay"
	FormatVennDiagram          CreativeFormat = "Venn Diagram"
	FormatTestimonialHighlight CreativeFormat = "Testimonial Highlight"
	FormatLeadMagnet3D         CreativeFormat = "Lead Magnet 3D"
	FormatMechanismXRay        CreativeFormat = "Mechanism X-Ray"
	FormatCarouselEducational  CreativeFormat = "Carousel Educational"
	FormatCarouselRealStory    CreativeFormat = "Carousel Real Story"
	FormatCarouselTestimonial  CreativeFormat = "Carousel Testimonial"
	FormatCarouselPanorama     CreativeFormat = "Carousel Panorama"
	FormatCarouselPhotoDump    CreativeFormat = "Carousel Photo Dump"
	FormatUsVsThem             CreativeFormat = "Us vs Them"
	FormatGraphChart           CreativeFormat = "Graph Chart"
	FormatStoryQnA             CreativeFormat = "Story Q&A"
	FormatUGCMirror            CreativeFormat = "UGC Mirror"
	FormatBeforeAfter          CreativeFormat = "Before & After"
	FormatBenefitPointers      CreativeFormat = "Benefit Pointers"
	FormatStickyNoteRealism    CreativeFormat = "Sticky Note Realism"
	FormatReminderNotif        CreativeFormat = "Reminder Notification"
	FormatDMNotification       CreativeFormat = "DM Notification"
	FormatSearchBar            CreativeFormat = "Search Bar"
	FormatAnnotatedProduct     CreativeFormat = "Annotated Product"
	FormatPhoneNotes           CreativeFormat = "Phone Notes"
	FormatReelsThumbnail       CreativeFormat = "Reels Thumbnail"
	FormatLongText             CreativeFormat = "Long Text"
	FormatSocialCommentStack   CreativeFormat = "Social Comment Stack"
	FormatStoryPoll            CreativeFormat = "Story Poll"
	FormatChatConversation     CreativeFormat = "Chat Conversation"
)

const (
	AspectSquare = "1:1"
	AspectTall   = "9:16"
)

// FormatGroup is a named strategic bucket shown to the user when picking formats.
type FormatGroup struct {
	Name    string           `json:"name"`
	Formats []CreativeFormat `json:"formats"`
}

var FormatGroups = []FormatGroup{
	{
		Name: "Pattern Interrupt (Stop the Scroll)",
		Formats: []CreativeFormat{
			FormatMeme, FormatUglyVisual, FormatRedditThread, FormatTwitterRepost, FormatOldMeVsNewMe,
			FormatPressFeature, FormatMSPaint, FormatHandheldTweet, FormatEducationalRant,
		},
	},
	{
		Name: "Education & Social Proof (Build Trust)",
		Formats: []CreativeFormat{
			FormatIGStoryText, FormatVennDiagram, FormatTestimonialHighlight, FormatLeadMagnet3D,
			FormatMechanismXRay, FormatCarouselEducational, FormatCarouselRealStory, FormatUsVsThem,
			FormatGraphChart, FormatStoryQnA, FormatUGCMirror, FormatBeforeAfter,
		},
	},
	{
		Name: "High Conversion (Kill the Objection)",
		Formats: []CreativeFormat{
			FormatBenefitPointers, FormatStickyNoteRealism, FormatReminderNotif, FormatDMNotification,
			FormatSearchBar, FormatAnnotatedProduct, FormatCarouselTestimonial,
		},
	},
}

var allFormats = []CreativeFormat{
	FormatMeme, FormatUglyVisual, FormatRedditThread, FormatTwitterRepost, FormatOldMeVsNewMe,
	FormatPressFeature, FormatMSPaint, FormatHandheldTweet, FormatEducationalRant, FormatIGStoryText,
	FormatVennDiagram, FormatTestimonialHighlight, FormatLeadMagnet3D, FormatMechanismXRay,
	FormatCarouselEducational, FormatCarouselRealStory, FormatCarouselTestimonial, FormatCarouselPanorama,
	FormatCarouselPhotoDump, FormatUsVsThem, FormatGraphChart, FormatStoryQnA, FormatUGCMirror,
	FormatBeforeAfter, FormatBenefitPointers, FormatStickyNoteRealism, FormatReminderNotif,
	FormatDMNotification, FormatSearchBar, FormatAnnotatedProduct, FormatPhoneNotes,
	FormatReelsThumbnail, FormatLongText, FormatSocialCommentStack, FormatStoryPoll,
	FormatChatConversation,
}

// KnownFormat reports whether f is one of the catalog formats.
func KnownFormat(f CreativeFormat) bool {
	return slices.Contains(allFormats, f)
}

// SelectFormats checks a user selection against the catalog and drops repeats,
// keeping the first occurrence of each format.
func SelectFormats(formats []CreativeFormat) ([]CreativeFormat, error) {
	out := make([]CreativeFormat, 0, len(formats))
	for _, f := range formats {
		if !KnownFormat(f) {
			return nil, fmt.Errorf("%w: unknown creative format %q", ErrInvalidNode, f)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

var carouselFormats = []CreativeFormat{
	FormatCarouselEducational, FormatCarouselTestimonial, FormatCarouselPanorama,
	FormatCarouselPhotoDump, FormatCarouselRealStory,
}

var tallFormats = []CreativeFormat{
	FormatIGStoryText, FormatPhoneNotes, FormatReelsThumbnail, FormatHandheldTweet,
}

func (f CreativeFormat) IsCarousel() bool {
	return slices.Contains(carouselFormats, f)
}

// AspectRatio is tall for story and notification style formats, square otherwise.
func (f CreativeFormat) AspectRatio() string {
	if slices.Contains(tallFormats, f) {
		return AspectTall
	}
	return AspectSquare
}

type AdCopy struct {
	Headline        string `json:"headline"`
	PrimaryText     string `json:"primaryText"`
	CTA             string `json:"cta"`
	ComplianceNotes string `json:"complianceNotes,omitempty"`
}

// CreativeConcept is the art director's output; it is echoed onto the
// creative so the image can be regenerated without redoing the copy.
type CreativeConcept struct {
	VisualScene         string `json:"visualScene"`
	VisualStyle         string `json:"visualStyle"`
	TechnicalPrompt     string `json:"technicalPrompt"`
	CopyAngle           string `json:"copyAngle,omitempty"`
	Rationale           string `json:"rationale,omitempty"`
	CongruenceRationale string `json:"congruenceRationale,omitempty"`
	HookComponent       string `json:"hookComponent,omitempty"`
	BodyComponent       string `json:"bodyComponent,omitempty"`
	CTAComponent        string `json:"ctaComponent,omitempty"`
}

type CreativeData struct {
	Format           CreativeFormat   `json:"format"`
	AdCopy           *AdCopy          `json:"adCopy,omitempty"`
	ImageURL         string           `json:"imageUrl,omitempty"`
	CarouselImages   []string         `json:"carouselImages,omitempty"`
	Concept          *CreativeConcept `json:"concept,omitempty"`
	VariableIsolated string           `json:"variableIsolated,omitempty"`
	AspectRatio      string           `json:"aspectRatio,omitempty"`
}

func (c CreativeData) Clone() CreativeData {
	out := c
	if c.AdCopy != nil {
		a := *c.AdCopy
		out.AdCopy = &a
	}
	if c.Concept != nil {
		cc := *c.Concept
		out.Concept = &cc
	}
	out.CarouselImages = slices.Clone(c.CarouselImages)
	return out
}
