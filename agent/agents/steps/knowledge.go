package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	toolx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/tool"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

const knowledgeContactLine = "If you need anything else, reach us at support@techgear.example, Monday to Friday, 9am-6pm EST."

const knowledgeNoContextResponse = "Thanks for reaching out to TechGear! I could not find a direct answer to that in our help center, but our support team at support@techgear.example (Monday to Friday, 9am-6pm EST) will be happy to help."

// Knowledge answers information requests from retrieved FAQ context. A
// retrieval outage degrades to a no-context answer; it never escalates the
// turn on its own except on timeout. Lookup-only tools (product search,
// company info) enrich the answer and land in the audit trail.
type Knowledge struct {
	retriever contractx.Retriever
	tools     contractx.ToolExecutor
	topK      int
	timeout   time.Duration
}

// NewKnowledge builds the knowledge step. tools may be nil, which disables
// the lookup enrichment.
func NewKnowledge(retriever contractx.Retriever, tools contractx.ToolExecutor, topK int, timeout time.Duration) (*Knowledge, error) {
	if retriever == nil {
		return nil, errors.New("knowledge: retriever is required")
	}
	if topK <= 0 {
		topK = defaultRetrievalTopK
	}
	return &Knowledge{retriever: retriever, tools: tools, topK: topK, timeout: timeout}, nil
}

func (k *Knowledge) Name() statex.StepName {
	return statex.StepKnowledge
}

func (k *Knowledge) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv.Classification == nil {
		return conv, contractx.NewStepError(statex.StepKnowledge, statex.ErrClassificationMissing)
	}

	cctx, cancel := stepContext(ctx, k.timeout)
	snippets, err := k.retriever.Retrieve(cctx, conv.Query, k.topK)
	cancel()
	if err != nil {
		if timedOut(ctx, err) {
			logx.Warn().Dur("timeout", k.timeout).Msg("knowledge retrieval timed out")
			conv.FlagEscalation("knowledge retrieval timed out")
			return conv, nil
		}
		// Backend outage: answer without context instead of failing the turn.
		logx.Warn().Err(err).Msg("retrieval degraded to no-context answer")
		snippets = nil
	}

	text := k.compose(ctx, conv, snippets)
	if err := conv.SetResponse(text); err != nil {
		return conv, contractx.NewStepError(statex.StepKnowledge, err)
	}

	if len(snippets) > 0 {
		conv.Resolution = statex.ResolutionResolved
	} else {
		conv.Resolution = statex.ResolutionPartial
	}

	logx.Debug().Int("snippets", len(snippets)).Str("resolution", string(conv.Resolution)).Msg("knowledge step answered")
	return conv, nil
}

func (k *Knowledge) compose(ctx context.Context, conv *statex.Conversation, snippets []contractx.Snippet) string {
	if len(snippets) == 0 {
		return k.noContextAnswer(ctx, conv)
	}

	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	for i, sn := range snippets {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, sn.Text)
	}
	if line, ok := k.productLine(ctx, conv); ok {
		b.WriteString("\n" + line + "\n")
	}
	b.WriteString("\n" + knowledgeContactLine)
	return b.String()
}

// productLine runs the product-search lookup when triage extracted a product
// mention. Lookup failures are recorded and skipped, never fatal.
func (k *Knowledge) productLine(ctx context.Context, conv *statex.Conversation) (string, bool) {
	if k.tools == nil {
		return "", false
	}
	ent, ok := conv.Classification.Entity(statex.EntityProduct, defaultEntityThreshold)
	if !ok {
		return "", false
	}

	cctx, cancel := stepContext(ctx, k.timeout)
	defer cancel()
	rec, err := k.tools.Execute(cctx, contractx.ToolRequest{
		Tool: toolx.ToolSearchProducts,
		Args: map[string]any{"query": ent.Value},
	})
	conv.AppendToolRecord(rec)
	if err != nil {
		logx.Debug().Err(err).Str("product", ent.Value).Msg("product lookup skipped")
		return "", false
	}

	matches, ok := rec.Result.([]toolx.ProductMatch)
	if !ok || len(matches) == 0 {
		return "", false
	}
	top := matches[0].Product
	availability := "in stock"
	if !top.InStock {
		availability = "currently out of stock"
	}
	return fmt.Sprintf("You might be looking at the %s ($%.2f, %s).", top.Name, top.Price, availability), true
}

// noContextAnswer is the degraded path: no snippets matched or the backend
// was down. Company info, when reachable, keeps the answer concrete.
func (k *Knowledge) noContextAnswer(ctx context.Context, conv *statex.Conversation) string {
	if k.tools == nil {
		return knowledgeNoContextResponse
	}

	cctx, cancel := stepContext(ctx, k.timeout)
	defer cancel()
	rec, err := k.tools.Execute(cctx, contractx.ToolRequest{Tool: toolx.ToolGetCompanyInfo, Args: map[string]any{}})
	conv.AppendToolRecord(rec)
	if err != nil {
		return knowledgeNoContextResponse
	}

	info, ok := rec.Result.(toolx.CompanyInfo)
	if !ok {
		return knowledgeNoContextResponse
	}
	return fmt.Sprintf(
		"Thanks for reaching out to %s! I could not find a direct answer to that in our help center, but our support team at %s (%s) will be happy to help.",
		info.Name, info.Contact, info.SupportHours,
	)
}

var _ contractx.Step = (*Knowledge)(nil)
