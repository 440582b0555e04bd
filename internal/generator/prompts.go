package generator

import (
	"fmt"
	"strings"

	"github.com/agenthands/funnelgraph/internal/core/model"
)

func projectBlock(p model.Project) string {
	return fmt.Sprintf(`Product: %s
Product Description: %s
Target Audience: %s
Target Country: %s
Brand Voice: %s
Funnel Stage: %s
Market Awareness: %s
Copy Framework: %s
Offer: %s
Language Register: %s`,
		p.ProductName, p.ProductDescription, p.TargetAudience, country(p), p.BrandVoice,
		p.FunnelStage, p.MarketAwareness, p.CopyFramework, p.Offer, p.LanguageRegister)
}

func country(p model.Project) string {
	if p.TargetCountry == "" {
		return "USA"
	}
	return p.TargetCountry
}

func isIndonesian(p model.Project) bool {
	return strings.Contains(strings.ToLower(country(p)), "indonesia")
}

func personasPrompt(p model.Project) string {
	return fmt.Sprintf(`ROLE: Consumer Psychologist and Direct Response Researcher.

CONTEXT:
%s

TASK:
Identify 3 distinct buyer personas for this product. Go past demographics: describe the
moment-to-moment frustrations ("visceral symptoms") they feel before buying.

OUTPUT JSON:
{"personas": [{"name": "...", "profile": "...", "motivation": "...", "demographics": "...",
"psychographics": "...", "visceralSymptoms": ["...", "..."]}]}`, projectBlock(p))
}

func anglesPrompt(p model.Project, persona model.Meta) string {
	return fmt.Sprintf(`You are a Direct Response Strategist applying the "Andromeda Testing Playbook".

CONTEXT:
Product: %s
Persona: %s
Deep Motivation: %s
Target Country: %s

TASK:
Brainstorm 10 raw angles using three frames: NEGATIVE (what they want to avoid), TECHNICAL
(a specific scientific term or ingredient), DESIRE (pure transformation).
Assign tiers: TIER 1 (Concept Isolation), TIER 2 (Persona Isolation), TIER 3 (Sprint Isolation).

Return ONLY the top 3 insights, at least one NEGATIVE angle. Write headline and hook in the
local language of %s.

OUTPUT JSON:
{"angles": [{"headline": "...", "painPoint": "...", "psychologicalTrigger": "...",
"testingTier": "TIER 1", "hook": "..."}]}`,
		p.ProductName, persona.String("name"), persona.String("motivation"), country(p), country(p))
}

func storiesPrompt(p model.Project, persona model.Meta) string {
	who := persona.String("name")
	if who == "" {
		who = p.TargetAudience
	}
	return fmt.Sprintf(`ROLE: Story Researcher (Direct Response).

CONTEXT:
%s
Audience focus: %s

TASK:
Find 3 raw, relatable stories this audience tells itself about the problem. Each story is a
specific moment, not a summary.

OUTPUT JSON:
{"stories": [{"title": "...", "narrative": "...", "emotionalTheme": "..."}]}`, projectBlock(p), who)
}

func bigIdeasPrompt(p model.Project, s model.StoryOption) string {
	return fmt.Sprintf(`ROLE: Direct Response Strategist (Big Idea Developer)

CONTEXT:
We are targeting a user who connects with this story: "%s" (%s).
Product: %s.

TASK:
Generate 3 "Big Ideas" that bridge this story to our solution. A Big Idea is NOT a benefit.
It is a new way of looking at the problem.

OUTPUT JSON:
{"bigIdeas": [{"headline": "...", "concept": "...", "targetBelief": "..."}]}`,
		s.Title, s.Narrative, p.ProductName)
}

func mechanismsPrompt(p model.Project, idea model.BigIdeaOption) string {
	lang := "LANGUAGE: Native English (USA/UK)."
	if isIndonesian(p) {
		lang = `LANGUAGE: Indonesian (Casual/Conversational). 'scientificPseudo' may stay in English;
'ump' and 'ums' MUST be in Indonesian.`
	}
	return fmt.Sprintf(`ROLE: Product Engineer / Pseudo-Scientist

CONTEXT:
Big Idea: %s
Product: %s
Target Audience Location: %s
%s

TASK:
Define the UMP (Unique Mechanism of Problem: why other methods failed) and the UMS (Unique
Mechanism of Solution: how THIS product solves that UMP). Give 3 variants.

OUTPUT JSON:
{"mechanisms": [{"ump": "...", "ums": "...", "scientificPseudo": "..."}]}`,
		idea.Headline, p.ProductName, country(p), lang)
}

func hooksPrompt(p model.Project, idea model.BigIdeaOption, m model.MechanismOption) string {
	tone, media := "LANGUAGE: Native English (Casual, Punchy).", "Cosmopolitan, National Enquirer"
	if isIndonesian(p) {
		tone = `LANGUAGE: Bahasa Indonesia (Bahasa Gaul / Social Media Slang). FORBIDDEN: "Anda", "Temukan", "Kami".`
		media = "Lambe Turah, Tribun News Clickbait, Viral TikToks"
	}
	return fmt.Sprintf(`ROLE: Viral Social Media Editor / Direct Response Copywriter.

TASK: Write 5 thumb-stopping hooks based on:
Big Idea: %s
Mechanism: %s (%s)

REFERENCE STYLE: %s

RULES:
1. Use "Shock & Awe".
2. Be specific (use odd numbers).
3. Call out the "Enemy" or a "Hidden Danger".

%s

OUTPUT JSON:
{"hooks": ["...", "..."]}`, idea.Headline, m.ScientificPseudo, m.UMS, media, tone)
}

func hvcoPrompt(p model.Project, painPoint string) string {
	return fmt.Sprintf(`ROLE: Lead Magnet Strategist.

CONTEXT:
The market is tired of hard offers. Catch the 97%% who are only looking for information with a
High Value Content Offer (HVCO): a PDF, video or guide.

PRODUCT: %s
PAIN POINT: %s

TASK:
Generate 3 HVCO titles that solve a specific "bleeding neck" problem WITHOUT asking for a
purchase. They must sound like insider knowledge and describe a mechanism (3-step system,
checklist).

OUTPUT JSON:
{"hvcos": [{"title": "...", "format": "PDF Guide", "hook": "..."}]}`, p.ProductName, painPoint)
}

func mafiaOfferPrompt(p model.Project) string {
	return fmt.Sprintf(`ROLE: Offer Architect.

CONTEXT:
Product: %s
Current Offer: %s
Target Audience: %s

TASK:
Turn the current offer into an offer they can't refuse:
1. BOLD PROMISE with a timeline.
2. VALUE STACK of bonuses that handle objections, each with a dollar value.
3. RISK REVERSAL: an outrageous guarantee.
4. SCARCITY: a reason to act now.

OUTPUT JSON:
{"headline": "...", "valueStack": ["Bonus 1 ($Val)", "..."], "riskReversal": "...", "scarcity": "..."}`,
		p.ProductName, p.Offer, p.TargetAudience)
}

func awarenessInstruction(p model.Project) string {
	a := p.MarketAwareness
	if a == "" {
		a = "Problem Aware"
	}
	switch {
	case strings.Contains(a, "Unaware"), strings.Contains(a, "Problem"):
		return "AWARENESS: LOW. Focus on SYMPTOM. Use Pattern Interrupt."
	case strings.Contains(a, "Solution"):
		return "AWARENESS: MEDIUM. Focus on MECHANISM and SOCIAL PROOF."
	default:
		return "AWARENESS: HIGH. Focus on URGENCY and OFFER."
	}
}

func conceptPrompt(p model.Project, persona model.Meta, angle string, f model.CreativeFormat) string {
	return fmt.Sprintf(`ROLE: Creative Director (Pattern Interrupt Specialist)

Imagine the standard boring ad for this industry, throw it away, and do the opposite.

INPUTS:
Product Name: %s
Product Description: %s
Persona: %s
Winning Insight: %s
Format: %s
Context: %s
%s

If the hook is about a habit, ritual or anxiety, describe the specific micro-moment.
For 'IG Story Text Overlay' leave clear negative space for text.

OUTPUT JSON:
{"visualScene": "...", "visualStyle": "...", "technicalPrompt": "...", "copyAngle": "...",
"rationale": "...", "congruenceRationale": "...", "hookComponent": "...", "bodyComponent": "...",
"ctaComponent": "..."}`,
		p.ProductName, p.ProductDescription, persona.String("name"), angle, f, country(p), awarenessInstruction(p))
}

func adCopyPrompt(r CopyRequest) string {
	symptoms := strings.Join(r.Persona.Strings("visceralSymptoms"), `", "`)
	motivation := r.Persona.String("motivation")
	if motivation == "" {
		motivation = "Relief"
	}

	tone := `LANGUAGE STYLE: Native social media English. FORBIDDEN: "Discover", "Unlock", "Unleash",
"Solution", "Introducing", "Revolutionary". Short, punchy lines, in media res.`
	if isIndonesian(r.Project) {
		tone = `LANGUAGE STYLE: Bahasa Indonesia gaul. FORBIDDEN: "Anda", "Kami", "Solusi", "Dapatkan".
Bestie sharing a secret, not a salesman.`
	}

	goal := "GOAL: Stop the scroll with a relatable struggle. Start in the middle of the action."
	if r.HVCOFlow || r.Format == model.FormatLeadMagnet3D {
		goal = "GOAL: Sell the CLICK, not the product. Make them curious about the secret inside the guide."
	}

	mech := ""
	if r.Mechanism != nil {
		mech = fmt.Sprintf("\nMECHANISM: %s (%s)", r.Mechanism.ScientificPseudo, r.Mechanism.UMS)
	}

	return fmt.Sprintf(`ROLE: Viral Social Media Content Creator (NOT a copywriter).

INPUT CONTEXT:
Product: %s (%s)
Offer: %s
Strategic Angle: %s
Format: %s%s

TARGET PERSONA:
- Identity: %s
- Visceral Symptoms: "%s"
- Motivation: "%s"

VISUAL CONTEXT:
The user sees: "%s"
Rationale: "%s"

%s
%s

OUTPUT JSON:
{"headline": "...", "primaryText": "...", "cta": "..."}`,
		r.Project.ProductName, r.Project.ProductDescription, r.Project.Offer, r.Angle, r.Format, mech,
		r.Persona.String("name"), symptoms, motivation,
		r.Concept.VisualScene, r.Concept.CongruenceRationale, tone, goal)
}

func salesLetterPrompt(p model.Project, b model.ContextBundle) string {
	return fmt.Sprintf(`ROLE: Direct Response Copywriter (Long Form / Advertorial Specialist).

TASK: Write a high-converting sales letter that connects all the strategic dots.

STRATEGY STACK:
1. HOOK: "%s"
2. STORY: "%s"
3. THE SHIFT (Big Idea): "%s" - "%s"
4. THE SOLUTION (Mechanism): "%s" - "%s"
5. OFFER: %s for %s.

PRODUCT DETAILS:
%s

FORMAT: Markdown. Short paragraphs.`,
		b.Hook, b.Story.Narrative, b.BigIdea.Headline, b.BigIdea.Concept,
		b.Mechanism.ScientificPseudo, b.Mechanism.UMS, p.Offer, p.ProductName, p.ProductDescription)
}

func compliancePrompt(c model.AdCopy) string {
	return fmt.Sprintf(`ROLE: Facebook/TikTok Ad Policy Expert.

TASK: Review the following ad copy for policy violations.

HEADLINE: %s
PRIMARY TEXT: %s

CHECKLIST:
1. Personal attributes.
2. Unrealistic before/after claims.
3. Misleading or false claims.
4. Profanity or glitch text.

Return "Compliant" if it passes, otherwise one sentence explaining why not.`, c.Headline, c.PrimaryText)
}

var uglyFormats = []model.CreativeFormat{model.FormatUglyVisual, model.FormatMSPaint, model.FormatRedditThread, model.FormatMeme}

func imagePrompt(r ImageRequest) string {
	mood := "Lighting: Natural, inviting. Emotion: Positive."
	for _, f := range uglyFormats {
		if f == r.Format {
			mood = "Lighting: Bad, amateur flash, or harsh fluorescent. Emotion: Authentic, candid."
		}
	}

	subject := fmt.Sprintf("SUBJECT: High context visual related to %s.", r.Angle)
	switch {
	case strings.Contains(r.Project.MarketAwareness, "Unaware"):
		subject = fmt.Sprintf("PAIN VISUALIZATION: Show the exact moment of frustration related to %q. Do not show the product.", r.Angle)
	case strings.Contains(r.Project.MarketAwareness, "Problem"):
		subject = `SCENE: The "Graveyard of Failed Attempts". Show the user surrounded by old solutions that didn't work.`
	}
	persona := ""
	if name := r.Persona.String("name"); name != "" {
		persona = fmt.Sprintf("PERSONA: %s. ", name)
	}

	c := r.Concept
	body := fmt.Sprintf("%s. Style: %s.", c.VisualScene, orDefault(c.VisualStyle, "Natural"))
	if len(c.TechnicalPrompt) > 20 {
		body = fmt.Sprintf("%s. Scene: %s.", c.TechnicalPrompt, c.VisualScene)
	}
	return fmt.Sprintf("%s%s %s Format: %s. Culture: %s. %s No watermarks, no distorted text.",
		persona, subject, body, r.Format, country(r.Project), mood)
}

func predictionPrompt(p model.Project, n model.Node) string {
	headline, primary, format := n.Title, "", ""
	if n.Creative != nil {
		format = string(n.Creative.Format)
		if n.Creative.AdCopy != nil {
			headline = orDefault(n.Creative.AdCopy.Headline, n.Title)
			primary = n.Creative.AdCopy.PrimaryText
		}
	}
	return fmt.Sprintf(`ROLE: Senior Media Buyer & Creative Strategist (Direct Response Audit).

TASK: Audit this creative and predict its performance on Meta/TikTok. Be critical.

CONTEXT:
Product: %s
Target Audience: %s
Country: %s

CREATIVE:
Format: %s
Headline: "%s"
Primary Text: "%s"
Visual Description: "%s"
Insight/Angle: "%s"

OUTPUT JSON:
{"score": 0-100, "hookStrength": "Weak|Moderate|Strong|Viral", "clarity": "Confusing|Clear|Crystal Clear",
"emotionalResonance": "Flat|Engaging|Visceral", "reasoning": "max 2 sentences"}`,
		p.ProductName, p.TargetAudience, p.TargetCountry, format, headline, primary,
		orDefault(n.Description, "See image"), n.Meta.String("angle"))
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}
