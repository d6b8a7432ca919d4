package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/guidance"
	"github.com/vnote-labs/coach/internal/llm"
	"github.com/vnote-labs/coach/internal/prompt"
	"github.com/vnote-labs/coach/internal/signals"
)

// maxGuidanceAttempts covers the first request plus one retry for an empty
// line or a line that speaks for the customer.
const maxGuidanceAttempts = 2

const unstructuredNotice = "Guidance response was not structured; showing the raw reply."

// ProposeRequest selects the guidance directive.
type ProposeRequest struct {
	Mode          domain.ProposalMode
	ObjectionText string
	// OnToken receives streamed text as it arrives.
	OnToken func(string)
}

// request is the state captured when a proposal starts.
type request struct {
	gen       uint64
	ctx       context.Context
	history   []domain.ConversationTurn
	goals     []domain.GoalState
	checklist []domain.ChecklistItemState
	persona   domain.Persona
	previous  *domain.Proposal
	focus     string
}

// ProposeNext asks the guidance model for the agent's next line. A call
// supersedes any proposal still in flight. When the call is cancelled it
// returns the proposal that was current when it started and a nil error.
// Any other failure leaves the conversation untouched and is returned.
func (e *Engine) ProposeNext(ctx context.Context, req ProposeRequest) (*domain.Proposal, error) {
	start := e.now()
	r, err := e.begin(ctx, req)
	if err != nil {
		e.observe(ctx, "propose_next", start, err, map[string]any{"mode": string(req.Mode)})
		return nil, err
	}

	p, attempts, err := e.request(r, req)
	fields := map[string]any{"mode": string(req.Mode), "attempts": attempts}

	if err != nil && (llm.IsCancelled(err) || r.ctx.Err() != nil) {
		e.finish(r, nil, nil)
		fields["cancelled"] = true
		e.observe(ctx, "propose_next", start, nil, fields)
		return r.previous, nil
	}
	if err != nil {
		e.finish(r, nil, err)
		e.observe(ctx, "propose_next", start, err, fields)
		return nil, err
	}

	committed := e.finish(r, p, nil)
	if !committed {
		fields["superseded"] = true
		e.observe(ctx, "propose_next", start, nil, fields)
		return r.previous, nil
	}
	fields["structured"] = p.Structured
	e.observe(ctx, "propose_next", start, nil, fields)
	return domain.CloneProposal(p), nil
}

// HandleObjection requests objection-handling guidance for text, or for the
// latest customer message when text is blank.
func (e *Engine) HandleObjection(ctx context.Context, text string, onToken func(string)) (*domain.Proposal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.mu.Lock()
		if i := domain.LastTurnOfRole(e.history, domain.RoleCustomer, len(e.history)-1); i >= 0 {
			text = e.history[i].Text
		}
		e.mu.Unlock()
	}
	return e.ProposeNext(ctx, ProposeRequest{Mode: domain.ModeObjection, ObjectionText: text, OnToken: onToken})
}

// begin validates the request, aborts the previous one and captures inputs.
func (e *Engine) begin(ctx context.Context, req ProposeRequest) (*request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deps.Chat == nil {
		return nil, llm.ErrNotConfigured
	}

	lastCustomer := ""
	if i := domain.LastTurnOfRole(e.history, domain.RoleCustomer, len(e.history)-1); i >= 0 {
		lastCustomer = e.history[i].Text
	}
	objection := strings.TrimSpace(req.ObjectionText)
	if objection == "" && lastCustomer == "" {
		return nil, ErrNoCustomerContext
	}

	e.abortLocked()
	callCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.loading = true
	e.lastErr = ""
	e.notice = ""

	return &request{
		gen:       e.gen,
		ctx:       callCtx,
		history:   domain.CloneHistory(e.history),
		goals:     domain.CloneGoals(e.goals),
		checklist: domain.CloneChecklist(e.checklist),
		persona:   e.persona,
		previous:  domain.CloneProposal(e.current),
		focus:     domain.CoalesceStr(objection, lastCustomer),
	}, nil
}

// request runs assemble, stream and parse, retrying once with a reminder.
func (e *Engine) request(r *request, req ProposeRequest) (*domain.Proposal, int, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeDefault
	}

	system := prompt.SystemPrompt(prompt.SystemInput{
		Persona:  r.persona,
		Plan:     e.opts.Plan,
		Script:   e.opts.Script,
		Playbook: e.opts.Playbook,
	})
	input := prompt.Input{
		Plan:          e.opts.Plan,
		Goals:         r.goals,
		Checklist:     r.checklist,
		Signals:       signals.Compute(r.history),
		Mode:          mode,
		ObjectionText: req.ObjectionText,
	}
	userContext := func(h []domain.ConversationTurn) string {
		in := input
		in.History = h
		return prompt.UserContext(in)
	}

	trimmed := prompt.TrimHistory(r.history, prompt.MaxHistoryChars, prompt.MaxHistoryTurns)
	kept, maxTokens := e.opts.Budget.Plan(system, func(h []domain.ConversationTurn) string {
		return userContext(h) + "\n" + prompt.UserPrompt(r.focus, true)
	}, trimmed)
	if maxTokens == 0 {
		return nil, 0, ErrPromptTooLarge
	}
	contextText := userContext(kept)

	opts := llm.ChatOptions{
		Model:       e.opts.Model,
		JSON:        true,
		Schema:      guidance.ResponseSchema,
		SchemaName:  guidance.ResponseSchemaName,
		Temperature: e.opts.Temperature,
		MaxTokens:   &maxTokens,
		Stream:      e.opts.Stream,
		Stop:        prompt.StopSequences,
		OnToken:     req.OnToken,
	}

	reminder := false
	var lastErr error
	for attempt := 1; attempt <= maxGuidanceAttempts; attempt++ {
		messages := prompt.Messages(system, contextText, prompt.UserPrompt(r.focus, reminder))
		text, err := e.deps.Chat.StreamChat(r.ctx, messages, opts)
		if err != nil {
			return nil, attempt, err
		}

		g := guidance.Parse(text)
		p := guidance.ToProposal(g)
		p.NextLine = guidance.SanitizeAgentLine(p.NextLine)

		switch {
		case p.NextLine == "", g.Source != nil && !g.HasNextLine:
			lastErr = ErrEmptyGuidance
		case guidance.MentionsCustomerLabel(g.NextBestThing):
			lastErr = ErrCustomerRoleplay
			reminder = true
		default:
			return &p, attempt, nil
		}
		e.deps.Logger.Debug("retrying guidance", "attempt", attempt, "reason", lastErr)
	}
	return nil, maxGuidanceAttempts, lastErr
}

// finish applies the outcome of r if it is still the current request and
// reports whether p was committed.
func (e *Engine) finish(r *request, p *domain.Proposal, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.gen != e.gen {
		return false
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.loading = false

	if err != nil {
		e.lastErr = fmt.Sprintf("guidance request failed: %v", err)
		return false
	}
	if p == nil {
		return false
	}

	e.goals = domain.MarkGoalsDone(e.goals, p.GoalsProgress)
	e.checklist = domain.MergeChecklist(e.checklist, p.Checklist)

	if p.Objection.Detected && p.Objection.Category != "" {
		if i := domain.LastTurnOfRole(e.history, domain.RoleCustomer, len(e.history)-1); i >= 0 {
			md := e.history[i].Metadata.Clone()
			if md == nil {
				md = &domain.TurnMetadata{}
			}
			md.ObjectionCategory = p.Objection.Category
			e.history[i].Metadata = md
		}
	}

	proposal := p.Clone()
	e.history = domain.AppendTurn(e.history, domain.ConversationTurn{
		ID:        e.deps.IDs(domain.RoleAssistant),
		Role:      domain.RoleAssistant,
		Text:      p.NextLine,
		Timestamp: e.now(),
		Metadata:  &domain.TurnMetadata{Proposal: &proposal},
	})
	e.current = domain.CloneProposal(p)
	if !p.Structured {
		e.notice = unstructuredNotice
	}
	e.persistLocked(r.ctx)
	return true
}
