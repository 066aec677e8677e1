package parser

import (
	"regexp"
	"strings"

	"github.com/testcraft-app/testcraft-service/internal/models"
)

// Parser converts raw question text into typed question records. It is a pure
// transformation: no I/O beyond the input string and an optional lookup table
// of previously uploaded images (key -> stored image reference).
//
// Input format, one block per question:
//
//	Q1. [TRUE_FALSE] The sky is blue.
//	Answer: true
//	Difficulty: EASY
//	Tags: physics, colors
//
// Blocks start at a line matching `Q<digits>.` and run to the next such line.
// A malformed block is dropped and recorded as a diagnostic; it never aborts
// parsing of the remaining blocks.
type Parser struct {
	images map[string]string
}

func New(images map[string]string) *Parser {
	return &Parser{images: images}
}

// ===== DIAGNOSTICS =====

type Severity string

const (
	// SeverityWarning marks a block that was dropped entirely.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks a block that was kept with a caveat.
	SeverityInfo Severity = "info"
)

// Diagnostic records why a block was dropped or flagged. Block is the
// 1-based position of the block in the input, Header its first line.
type Diagnostic struct {
	Block    int      `json:"block"`
	Header   string   `json:"header"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

type Result struct {
	Questions   []*models.Question `json:"questions"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// ===== LINE PATTERNS =====

var (
	blockBoundaryRe = regexp.MustCompile(`(?m)^Q\d+\.`)
	headerRe        = regexp.MustCompile(`^Q\d+\.\s*(?:\[([A-Z_]+)\]\s*)?(.*)$`)
	imageRe         = regexp.MustCompile(`\[image:\s*([^\]]+)\]`)
	latexRe         = regexp.MustCompile(`\[latex:\s*([^\]]+)\]`)
	optionRe        = regexp.MustCompile(`^([A-D])\.\s+(.*)$`)
	answerLetterRe  = regexp.MustCompile(`^Answer:\s*([A-D])\s*$`)
	answerBoolRe    = regexp.MustCompile(`(?i)^Answer:\s*(true|false)\s*$`)
	answerBlankRe   = regexp.MustCompile(`^Answer:\s*([^|]+?)\s*(?:\|\s*Alternatives:\s*(.*))?$`)
	matchPairRe     = regexp.MustCompile(`^(\d+)\.\s*(.+?)\s*\|\s*(.+?)\s*$`)
	difficultyRe    = regexp.MustCompile(`(?i)^Difficulty:\s*(EASY|MEDIUM|HARD)\s*$`)
	tagsRe          = regexp.MustCompile(`^Tags:\s*(.+)$`)
	modelAnswerRe   = regexp.MustCompile(`^Model Answer:\s*(.+)$`)
	keywordsRe      = regexp.MustCompile(`^Keywords:\s*(.+)$`)
)

const blankMarker = "[___]"

// ===== PARSING =====

// Parse splits the input into question blocks and runs each through its
// type-specific sub-parser. Questions come back without ids; identifier
// assignment belongs to the repository. An input that yields zero questions
// is not an error here; the caller decides what that means.
func (p *Parser) Parse(input string) *Result {
	result := &Result{}

	for i, block := range splitBlocks(input) {
		q, diags := p.parseBlock(i+1, block)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if q != nil {
			result.Questions = append(result.Questions, q)
		}
	}

	return result
}

// splitBlocks cuts the input at every `Q<digits>.` line start. Text before
// the first boundary is preamble and is ignored.
func splitBlocks(input string) []string {
	bounds := blockBoundaryRe.FindAllStringIndex(input, -1)
	blocks := make([]string, 0, len(bounds))

	for i, b := range bounds {
		end := len(input)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		if block := strings.TrimSpace(input[b[0]:end]); block != "" {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// blockContext carries the per-block state shared by every sub-parser:
// accumulated question text, block-level metadata, and the diagnostics sink.
type blockContext struct {
	num        int
	header     string
	textParts  []string
	difficulty models.DifficultyLevel
	tags       []string
	diags      []Diagnostic
}

func (c *blockContext) dropf(reason string) []Diagnostic {
	return append(c.diags, Diagnostic{
		Block:    c.num,
		Header:   c.header,
		Severity: SeverityWarning,
		Reason:   reason,
	})
}

func (c *blockContext) note(reason string) {
	c.diags = append(c.diags, Diagnostic{
		Block:    c.num,
		Header:   c.header,
		Severity: SeverityInfo,
		Reason:   reason,
	})
}

// metadataLine consumes block-level `Difficulty:` and `Tags:` lines. Returns
// true when the line was recognized.
func (c *blockContext) metadataLine(line string) bool {
	if m := difficultyRe.FindStringSubmatch(line); m != nil {
		c.difficulty = models.DifficultyLevel(strings.ToUpper(m[1]))
		return true
	}
	if m := tagsRe.FindStringSubmatch(line); m != nil {
		c.tags = splitCSV(m[1])
		return true
	}
	return false
}

// text assembles the display text: header remainder plus every continuation
// line, whitespace-normalized. Handles the line wrapping PDF extraction
// introduces.
func (c *blockContext) text() string {
	return strings.Join(strings.Fields(strings.Join(c.textParts, " ")), " ")
}

func (p *Parser) parseBlock(num int, block string) (*models.Question, []Diagnostic) {
	lines := strings.Split(block, "\n")

	m := headerRe.FindStringSubmatch(lines[0])
	if m == nil {
		// Unreachable given the boundary pattern, but a block is never
		// allowed to take down the whole parse.
		return nil, []Diagnostic{{Block: num, Header: lines[0], Severity: SeverityWarning, Reason: "unparseable header line"}}
	}

	qType := models.MultipleChoice
	if tag := m[1]; tag != "" {
		qType = models.QuestionType(tag)
		switch qType {
		case models.MultipleChoice, models.TrueFalse, models.FillInBlank, models.Matching, models.ShortAnswer:
		default:
			ctx := &blockContext{num: num, header: lines[0]}
			return nil, ctx.dropf("unknown question type tag [" + tag + "]")
		}
	}

	ctx := &blockContext{
		num:        num,
		header:     lines[0],
		textParts:  []string{m[2]},
		difficulty: models.DifficultyMedium,
	}

	var q *models.Question
	switch qType {
	case models.MultipleChoice:
		q = p.parseMultipleChoice(ctx, lines[1:])
	case models.TrueFalse:
		q = p.parseTrueFalse(ctx, lines[1:])
	case models.FillInBlank:
		q = p.parseFillBlank(ctx, lines[1:])
	case models.Matching:
		q = p.parseMatching(ctx, lines[1:])
	case models.ShortAnswer:
		q = p.parseShortAnswer(ctx, lines[1:])
	}
	if q == nil {
		return nil, ctx.diags
	}

	q.Difficulty = ctx.difficulty
	if len(ctx.tags) > 0 {
		if err := q.SetTags(ctx.tags); err != nil {
			ctx.note("tags could not be encoded: " + err.Error())
		}
	}

	return q, ctx.diags
}

// ===== TYPE-SPECIFIC SUB-PARSERS =====

func (p *Parser) parseMultipleChoice(ctx *blockContext, lines []string) *models.Question {
	var options [4]*models.QuestionOption
	correct := -1

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ctx.metadataLine(line) {
			continue
		}
		if m := answerLetterRe.FindStringSubmatch(line); m != nil {
			correct = int(m[1][0] - 'A') // last Answer line wins
			continue
		}
		if m := optionRe.FindStringSubmatch(line); m != nil {
			text, latex := extractLatex(m[2])
			options[m[1][0]-'A'] = &models.QuestionOption{
				ID:    strings.ToLower(m[1]),
				Text:  strings.TrimSpace(text),
				Latex: latex,
			}
			continue
		}
		ctx.textParts = append(ctx.textParts, line)
	}

	content := models.MultipleChoiceContent{CorrectOptionIndex: correct}
	for _, opt := range options {
		if opt == nil {
			return ctx.dropQuestion("multiple choice requires exactly 4 options (A-D)")
		}
		content.Options = append(content.Options, *opt)
	}
	if correct < 0 {
		return ctx.dropQuestion("multiple choice requires an `Answer: <A-D>` line")
	}

	return p.build(ctx, models.MultipleChoice, content)
}

func (p *Parser) parseTrueFalse(ctx *blockContext, lines []string) *models.Question {
	answered := false
	var answer bool

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ctx.metadataLine(line) {
			continue
		}
		if m := answerBoolRe.FindStringSubmatch(line); m != nil {
			answer = strings.EqualFold(m[1], "true")
			answered = true
			continue
		}
		ctx.textParts = append(ctx.textParts, line)
	}

	if !answered {
		return ctx.dropQuestion("true/false requires an `Answer: True|False` line")
	}

	return p.build(ctx, models.TrueFalse, models.TrueFalseContent{CorrectAnswer: answer})
}

func (p *Parser) parseFillBlank(ctx *blockContext, lines []string) *models.Question {
	var blanks []models.Blank

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ctx.metadataLine(line) {
			continue
		}
		if m := answerBlankRe.FindStringSubmatch(line); m != nil {
			blanks = append(blanks, models.Blank{
				Answer:       strings.TrimSpace(m[1]),
				Alternatives: splitCSV(m[2]),
			})
			continue
		}
		ctx.textParts = append(ctx.textParts, line)
	}

	if len(blanks) == 0 {
		return ctx.dropQuestion("fill-in-blank requires at least one `Answer:` line")
	}

	q := p.build(ctx, models.FillInBlank, models.FillBlankContent{Blanks: blanks})
	if q != nil {
		if markers := strings.Count(q.Text, blankMarker); markers != len(blanks) {
			ctx.note("blank marker count does not match answer count")
		}
	}
	return q
}

func (p *Parser) parseMatching(ctx *blockContext, lines []string) *models.Question {
	var pairs []models.MatchPair

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ctx.metadataLine(line) {
			continue
		}
		if m := matchPairRe.FindStringSubmatch(line); m != nil {
			pairs = append(pairs, models.MatchPair{
				ID:       m[1],
				Premise:  m[2],
				Response: m[3],
			})
			continue
		}
		ctx.textParts = append(ctx.textParts, line)
	}

	if len(pairs) == 0 {
		return ctx.dropQuestion("matching requires at least one `<n>. premise | response` line")
	}

	return p.build(ctx, models.Matching, models.MatchingContent{Pairs: pairs})
}

func (p *Parser) parseShortAnswer(ctx *blockContext, lines []string) *models.Question {
	var modelAnswer string
	var keywords []string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ctx.metadataLine(line) {
			continue
		}
		if m := modelAnswerRe.FindStringSubmatch(line); m != nil {
			modelAnswer = strings.TrimSpace(m[1])
			continue
		}
		if m := keywordsRe.FindStringSubmatch(line); m != nil {
			keywords = splitCSV(m[1])
			continue
		}
		ctx.textParts = append(ctx.textParts, line)
	}

	if modelAnswer == "" {
		return ctx.dropQuestion("short answer requires a `Model Answer:` line")
	}

	return p.build(ctx, models.ShortAnswer, models.ShortAnswerContent{
		ModelAnswer: modelAnswer,
		Keywords:    keywords,
	})
}

// dropQuestion records the drop reason and yields no question.
func (c *blockContext) dropQuestion(reason string) *models.Question {
	c.diags = c.dropf(reason)
	return nil
}

// ===== DIRECTIVES =====

// build resolves the inline directives on the assembled question text and
// constructs the final record.
func (p *Parser) build(ctx *blockContext, qType models.QuestionType, content interface{}) *models.Question {
	text := ctx.text()

	text, latex := extractLatex(text)
	text, imageRef := p.extractImage(ctx, text)
	text = strings.Join(strings.Fields(text), " ")

	q, err := models.NewQuestion(qType, text, content)
	if err != nil {
		ctx.diags = ctx.dropf(err.Error())
		return nil
	}
	if latex != "" {
		q.Latex = &latex
	}
	if imageRef != "" {
		q.ImageRef = &imageRef
	}
	return q
}

// extractLatex captures the first `[latex: expr]` directive and strips every
// occurrence from the text.
func extractLatex(text string) (string, string) {
	var latex string
	if m := latexRe.FindStringSubmatch(text); m != nil {
		latex = strings.TrimSpace(m[1])
	}
	return latexRe.ReplaceAllString(text, ""), latex
}

// extractImage resolves the first `[image: key]` directive against the image
// table. The directive is stripped even when the key is unknown; only a
// successful lookup attaches an image.
func (p *Parser) extractImage(ctx *blockContext, text string) (string, string) {
	var ref string
	if m := imageRe.FindStringSubmatch(text); m != nil {
		key := strings.TrimSpace(m[1])
		if r, ok := p.images[key]; ok {
			ref = r
		} else {
			ctx.note("image key not found: " + key)
		}
	}
	return imageRe.ReplaceAllString(text, ""), ref
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
