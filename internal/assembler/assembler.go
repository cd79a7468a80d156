// Package assembler turns a user message, session history, page metadata,
// and uploaded structured data into a single bounded prompt for an AI
// provider. Assembly is a pure function of its request: no I/O, no shared
// state, safe to call concurrently for different sessions.
package assembler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Default budgets. Unset sub-budgets derive from the total: half for the
// user message, a third for structured data, a quarter for history, an
// eighth for page context (6000 total gives 3000/2000/1500/750). The
// ratios are tuned empirically, not load-bearing; all of them are
// overridable through Config.
const (
	DefaultTotalTokenBudget = 6000
	DefaultHistoryTurnCount = 10

	messageBudgetDivisor     = 2
	dataBudgetDivisor        = 3
	historyBudgetDivisor     = 4
	pageContextBudgetDivisor = 8
)

// Section labels, always emitted in this order.
const (
	labelPageContext  = "Context from page:"
	labelInstructions = "Instructions:"
	labelData         = "Data:"
	labelHistory      = "Conversation so far:"
	labelMessage      = "User:"
)

// Config carries the token budgets for prompt assembly. Zero or negative
// fields fall back to the defaults above.
type Config struct {
	// TotalTokenBudget is the hard ceiling for the assembled prompt.
	TotalTokenBudget int
	// MessageSubBudget is reserved for the current user message before
	// any context section is considered.
	MessageSubBudget int
	// DataSubBudget caps the structured-data section.
	DataSubBudget int
	// HistorySubBudget caps the conversation-history section.
	HistorySubBudget int
	// PageContextSubBudget caps the page-context section.
	PageContextSubBudget int
	// HistoryTurnCount is the maximum number of trailing history turns
	// considered at all, before any token budgeting.
	HistoryTurnCount int
}

func (c Config) withDefaults() Config {
	if c.TotalTokenBudget <= 0 {
		c.TotalTokenBudget = DefaultTotalTokenBudget
	}
	if c.MessageSubBudget <= 0 {
		c.MessageSubBudget = c.TotalTokenBudget / messageBudgetDivisor
	}
	if c.DataSubBudget <= 0 {
		c.DataSubBudget = c.TotalTokenBudget / dataBudgetDivisor
	}
	if c.HistorySubBudget <= 0 {
		c.HistorySubBudget = c.TotalTokenBudget / historyBudgetDivisor
	}
	if c.PageContextSubBudget <= 0 {
		c.PageContextSubBudget = c.TotalTokenBudget / pageContextBudgetDivisor
	}
	if c.HistoryTurnCount <= 0 {
		c.HistoryTurnCount = DefaultHistoryTurnCount
	}
	return c
}

// Turn is one prior message of a session, supplied by the message store
// in chronological order. The assembler never mutates turns.
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
	Metadata  map[string]any
}

// PageContext is free-form metadata about the page the widget is
// embedded in, supplied by the browser per message.
type PageContext struct {
	URL             string
	Title           string
	Hostname        string
	Pathname        string
	TextExcerpt     string
	MetaDescription string
	Timestamp       time.Time
}

// Request is the assembler's sole input.
type Request struct {
	Message            string
	CustomInstructions string
	PageContext        *PageContext
	// StructuredData is the session's current JSON blob (uploaded file
	// content or pushed dynamic data). Invalid JSON is tolerated: it is
	// included as plain text instead of failing the assembly.
	StructuredData json.RawMessage
	// DataNote is an optional one-line caption for the data section,
	// e.g. a description of the uploaded file.
	DataNote string
	History  []Turn
}

// SectionReport records what happened to one prompt section.
type SectionReport struct {
	Included  bool
	Truncated bool
	Tokens    int
}

// Report describes which sections made it into the prompt and how much
// was cut. It is advisory, for logging; callers must not branch on it.
type Report struct {
	PageContext  SectionReport
	Instructions SectionReport
	Data         SectionReport
	History      SectionReport
	Message      SectionReport

	HistoryTurnsKept    int
	HistoryTurnsDropped int
	DataSectionsDropped int
}

// Result is the assembled prompt plus its report.
type Result struct {
	Prompt          string
	EstimatedTokens int
	Report          Report
}

// Assembler builds prompts under a fixed Config. It holds no other
// state.
type Assembler struct {
	cfg Config
}

// New returns an Assembler with cfg normalized against the defaults.
func New(cfg Config) *Assembler {
	return &Assembler{cfg: cfg.withDefaults()}
}

// Config returns the normalized configuration in effect.
func (a *Assembler) Config() Config {
	return a.cfg
}

// Assemble builds the prompt. It never fails: oversized input degrades
// section by section until the estimate fits the total budget, and the
// user message survives at minimum, truncated if it must be.
func (a *Assembler) Assemble(req Request) Result {
	cfg := a.cfg

	msgBudget := cfg.MessageSubBudget
	if msgBudget > cfg.TotalTokenBudget {
		msgBudget = cfg.TotalTokenBudget
	}
	remaining := cfg.TotalTokenBudget - msgBudget

	var rep Report

	// The message is reserved first and never dropped.
	message := TruncateText(req.Message, msgBudget, true)
	msgBlock := labelMessage + " " + message
	rep.Message = SectionReport{
		Included:  true,
		Truncated: message != req.Message,
		Tokens:    EstimateTokens(msgBlock),
	}

	// Page context, capped to its own sub-budget.
	var pageBlock string
	if req.PageContext != nil {
		body, truncated := buildPageContext(*req.PageContext, minInt(cfg.PageContextSubBudget, remaining))
		if body != "" {
			pageBlock = labelPageContext + "\n" + body
			tokens := EstimateTokens(pageBlock)
			remaining = maxInt(remaining-tokens, 0)
			rep.PageContext = SectionReport{Included: true, Truncated: truncated, Tokens: tokens}
		}
	}

	// Custom instructions go in verbatim. They are assumed short and
	// carry no sub-budget of their own; the sections after them absorb
	// whatever they consume.
	var instrBlock string
	if instr := strings.TrimSpace(req.CustomInstructions); instr != "" {
		instrBlock = labelInstructions + "\n" + instr
		tokens := EstimateTokens(instrBlock)
		remaining = maxInt(remaining-tokens, 0)
		rep.Instructions = SectionReport{Included: true, Tokens: tokens}
	}

	// Structured data, compacted to tables where possible.
	var data *dataSection
	var dataBlock string
	if len(req.StructuredData) > 0 {
		data = buildDataSection(req.StructuredData, req.DataNote, minInt(cfg.DataSubBudget, remaining))
		if data != nil {
			dataBlock = data.render()
			tokens := EstimateTokens(dataBlock)
			remaining = maxInt(remaining-tokens, 0)
			rep.Data = SectionReport{Included: true, Truncated: data.truncated, Tokens: tokens}
			rep.DataSectionsDropped = data.dropped
		}
	}

	// History gets whatever is left, newest turns first.
	turns := req.History
	if len(turns) > cfg.HistoryTurnCount {
		rep.HistoryTurnsDropped += len(turns) - cfg.HistoryTurnCount
		turns = turns[len(turns)-cfg.HistoryTurnCount:]
	}
	kept, dropped := TruncateHistory(turns, minInt(cfg.HistorySubBudget, remaining))
	rep.HistoryTurnsDropped += dropped
	rep.HistoryTurnsKept = len(kept)
	var histBlock string
	if len(kept) > 0 {
		histBlock = labelHistory + "\n" + renderHistory(kept)
		rep.History = SectionReport{
			Included:  true,
			Truncated: rep.HistoryTurnsDropped > 0,
			Tokens:    EstimateTokens(histBlock),
		}
	}

	prompt := joinBlocks(pageBlock, instrBlock, dataBlock, histBlock, msgBlock)

	// Final clamp: sub-budgets are estimates, so the concatenation can
	// still overshoot. Degrade least-important content first: old
	// history turns, then data, then page context, then instructions.
	for EstimateTokens(prompt) > cfg.TotalTokenBudget {
		switch {
		case len(kept) > 0:
			kept = kept[1:]
			rep.HistoryTurnsDropped++
			rep.HistoryTurnsKept = len(kept)
			if len(kept) == 0 {
				histBlock = ""
				rep.History = SectionReport{}
			} else {
				histBlock = labelHistory + "\n" + renderHistory(kept)
				rep.History.Truncated = true
				rep.History.Tokens = EstimateTokens(histBlock)
			}
		case data != nil:
			before := len(data.tables)
			if !data.degrade() {
				data = nil
				dataBlock = ""
				rep.DataSectionsDropped += before
				rep.Data = SectionReport{}
				break
			}
			rep.DataSectionsDropped += before - len(data.tables)
			dataBlock = data.render()
			rep.Data.Truncated = true
			rep.Data.Tokens = EstimateTokens(dataBlock)
		case pageBlock != "":
			pageBlock = ""
			rep.PageContext = SectionReport{}
		case instrBlock != "":
			instrBlock = ""
			rep.Instructions = SectionReport{}
		default:
			// Nothing left but the message itself.
			msgBlock = clampMessage(message, cfg.TotalTokenBudget)
			rep.Message.Truncated = true
			rep.Message.Tokens = EstimateTokens(msgBlock)
			prompt = msgBlock
			return Result{Prompt: prompt, EstimatedTokens: EstimateTokens(prompt), Report: rep}
		}
		prompt = joinBlocks(pageBlock, instrBlock, dataBlock, histBlock, msgBlock)
	}

	return Result{Prompt: prompt, EstimatedTokens: EstimateTokens(prompt), Report: rep}
}

// clampMessage fits the labeled message into maxTokens, dropping the
// label before it would drop content.
func clampMessage(message string, maxTokens int) string {
	labelCost := EstimateTokens(labelMessage + " ")
	if maxTokens > labelCost {
		candidate := labelMessage + " " + TruncateText(message, maxTokens-labelCost, true)
		if EstimateTokens(candidate) <= maxTokens {
			return candidate
		}
	}
	return TruncateText(message, maxTokens, true)
}

// buildPageContext renders the page metadata. URL and title are never
// truncated: if the fixed fields alone exceed the budget the whole
// section is dropped (empty return). Only the text excerpt is cut.
func buildPageContext(pc PageContext, maxTokens int) (string, bool) {
	var fixed []string
	addField := func(name, value string) {
		if value != "" {
			fixed = append(fixed, name+": "+value)
		}
	}
	addField("URL", pc.URL)
	addField("Title", pc.Title)
	addField("Hostname", pc.Hostname)
	addField("Path", pc.Pathname)
	addField("Description", pc.MetaDescription)

	excerpt := strings.TrimSpace(pc.TextExcerpt)
	if len(fixed) == 0 && excerpt == "" {
		return "", false
	}

	base := strings.Join(fixed, "\n")
	baseTokens := EstimateTokens(base)
	if baseTokens > maxTokens {
		return "", false
	}

	if excerpt == "" {
		return base, false
	}

	contentPrefix := "Content: "
	budget := maxTokens - baseTokens - EstimateTokens(contentPrefix)
	if budget <= 0 {
		return base, true
	}
	cut := TruncateText(excerpt, budget, false)
	body := contentPrefix + cut
	if base != "" {
		body = base + "\n" + body
	}
	return body, cut != excerpt
}

// dataSection is the structured-data block in a degradable form, so the
// final clamp pass can shed pieces without re-parsing the JSON.
type dataSection struct {
	note      string
	tables    []TableSection
	remainder string
	truncated bool
	dropped   int
}

// buildDataSection parses and compacts the raw JSON into a budgeted data
// block. Returns nil when nothing fits. Malformed JSON is not an error:
// the raw text is carried as-is, truncated to the budget.
func buildDataSection(raw json.RawMessage, note string, maxTokens int) *dataSection {
	if maxTokens <= 0 {
		return nil
	}
	d := &dataSection{note: strings.TrimSpace(note)}
	budget := maxTokens - EstimateTokens(d.note)
	if budget <= 0 {
		return nil
	}

	v, err := ParseJSON(raw)
	if err != nil {
		text := strings.TrimSpace(string(raw))
		d.remainder = TruncateText(text, budget, false)
		d.truncated = d.remainder != text
		if d.remainder == "" {
			return nil
		}
		return d
	}

	sections, processed, hasOther := Compact(v)
	if len(sections) == 0 {
		text := processed.JSON()
		d.remainder = TruncateText(text, budget, false)
		d.truncated = d.remainder != text
		if d.remainder == "" {
			return nil
		}
		return d
	}

	kept, truncatedCount, droppedCount := TruncateStructuredData(sections, budget)
	d.tables = kept
	d.truncated = truncatedCount > 0 || droppedCount > 0
	d.dropped = droppedCount

	used := 0
	for _, t := range kept {
		used += EstimateTokens(t.Table) + EstimateTokens(tableHeading(t))
	}
	if hasOther {
		if leftover := budget - used; leftover > 0 {
			text := processed.JSON()
			d.remainder = TruncateText(text, leftover, false)
			if d.remainder != text {
				d.truncated = true
			}
		}
	}

	if len(d.tables) == 0 && d.remainder == "" {
		return nil
	}
	return d
}

// degrade sheds the least valuable piece of the section: the JSON
// remainder first, then tables from the back. Returns false once the
// section is empty and should be dropped entirely.
func (d *dataSection) degrade() bool {
	if d.remainder != "" {
		d.remainder = ""
		d.truncated = true
		return true
	}
	if len(d.tables) > 0 {
		d.tables = d.tables[:len(d.tables)-1]
		d.truncated = true
		if len(d.tables) > 0 || d.note != "" {
			return true
		}
	}
	return false
}

func (d *dataSection) render() string {
	if d == nil || (len(d.tables) == 0 && d.remainder == "" && d.note == "") {
		return ""
	}
	var b strings.Builder
	b.WriteString(labelData)
	if d.note != "" {
		b.WriteString("\n")
		b.WriteString(d.note)
	}
	for _, t := range d.tables {
		b.WriteString("\n")
		b.WriteString(tableHeading(t))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(t.Table, "\n"))
	}
	if d.remainder != "" {
		b.WriteString("\nAdditional context:\n")
		b.WriteString(d.remainder)
	}
	return b.String()
}

func tableHeading(t TableSection) string {
	return fmt.Sprintf("## %s (%d records):", t.Path, t.RowCount)
}

func renderHistory(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(formatTurn(t))
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinBlocks(blocks ...string) string {
	nonEmpty := blocks[:0:0]
	for _, blk := range blocks {
		if blk != "" {
			nonEmpty = append(nonEmpty, blk)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
