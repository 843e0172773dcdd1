// Package assistant runs chat turns: retrieval, cache-aware ordering, packing,
// the completion call and the post-turn history writes.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/dirctx/internal/application/optimizer"
	"github.com/doeshing/dirctx/internal/application/packer"
	"github.com/doeshing/dirctx/internal/application/retrieval"
	"github.com/doeshing/dirctx/internal/application/window"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Turn outcomes reported to metrics.
const (
	OutcomeAccepted = "accepted"
	OutcomeFailed   = "failed"
)

// CandidateSource returns artifacts near a query, closest first.
type CandidateSource interface {
	Retrieve(ctx context.Context, query string, maxK int, maxDistance float64) ([]domain.Candidate, error)
}

// Service holds the collaborators shared by all sessions.
type Service struct {
	Config    domain.Config
	Model     domain.ModelDefinition
	Retriever CandidateSource
	Artifacts ports.ArtifactReader
	History   ports.UsageHistoryStore
	Prefixes  ports.PrefixCacheStore
	Completer ports.Completer
	Counter   ports.TokenCounter
	Metrics   ports.Metrics
	Logger    ports.Logger
}

// Session is one conversation. It is not safe for concurrent use.
type Session struct {
	svc       *Service
	id        string
	window    *window.Manager
	optimizer *optimizer.Optimizer

	// OnGuidance, when set, receives the CGRAG guidance before the answer
	// is requested.
	OnGuidance func(guidance string)
}

// TurnResult describes an accepted turn.
type TurnResult struct {
	Reply         string
	Guidance      string
	ArtifactIDs   []string
	MatchedPrefix domain.PrefixKey
	ContextTokens int
	Backfilled    int
	Evicted       int
	Truncated     bool
	// Displaced counts close candidates left out of the context while a cached
	// prefix was honored.
	Displaced int
}

// NewSession starts a conversation identified by id.
func (s *Service) NewSession(id string) (*Session, error) {
	if s.Retriever == nil || s.Artifacts == nil || s.History == nil || s.Prefixes == nil ||
		s.Completer == nil || s.Counter == nil || s.Logger == nil {
		return nil, errors.New("assistant.Service dependencies not satisfied")
	}
	if s.Metrics == nil {
		s.Metrics = nopMetrics{}
	}
	return &Session{
		svc: s,
		id:  id,
		window: window.New(
			s.Counter,
			s.Config.SystemInstructions,
			s.Model.ContextSize,
			s.Config.HistoryBudget(s.Model),
			s.Logger,
		),
		optimizer: optimizer.New(
			s.Config.Cache.OptimizerWeights,
			s.Config.Context.ArtifactExcludableFactor,
			s.Logger,
		),
	}, nil
}

// ID returns the session id recorded with every history entry.
func (ss *Session) ID() string {
	return ss.id
}

// Messages returns the conversation window.
func (ss *Session) Messages() []domain.Message {
	return ss.window.Messages()
}

// Ask runs one turn. Deltas are written to out as they arrive. History and
// the prefix cache are only written after the completion finished; a failed
// turn leaves the window, history and cache untouched.
func (ss *Session) Ask(ctx context.Context, prompt string, out domain.StreamWriter) (TurnResult, error) {
	res, err := ss.ask(ctx, prompt, out)
	if err != nil {
		ss.svc.Metrics.ObserveTurn(OutcomeFailed)
		return TurnResult{}, err
	}
	ss.svc.Metrics.ObserveTurn(OutcomeAccepted)
	return res, nil
}

func (ss *Session) ask(ctx context.Context, prompt string, out domain.StreamWriter) (TurnResult, error) {
	svc := ss.svc
	var res TurnResult

	query := prompt
	if svc.Config.Preferences.UseCGRAG {
		guidance, err := ss.guidance(ctx, prompt)
		if err != nil {
			return res, err
		}
		res.Guidance = guidance
		if ss.OnGuidance != nil {
			ss.OnGuidance(guidance)
		}
		if strings.TrimSpace(guidance) != "" {
			query = guidance
		}
	}

	packed, matched, err := ss.assemble(ctx, query)
	if err != nil {
		return res, err
	}
	res.ArtifactIDs = packed.IDs
	res.MatchedPrefix = matched.MatchedPrefix
	res.ContextTokens = packed.Tokens
	res.Backfilled = packed.Backfilled
	if !matched.MatchedPrefix.IsEmpty() {
		res.Displaced = displaced(matched.Core, packed.IDs)
	}

	fit := ss.window.Append(prompt, packed.Text)
	res.Evicted, res.Truncated = fit.Evicted, fit.Truncated
	if fit.Truncated {
		svc.Metrics.ObserveTruncation()
	}

	reply, err := ss.complete(ctx, ss.window.Messages(), out)
	if err != nil {
		ss.window.Rollback()
		return TurnResult{}, err
	}
	if err := ss.persist(ctx, prompt, packed.IDs, matched.MatchedPrefix); err != nil {
		ss.window.Rollback()
		return TurnResult{}, err
	}
	ss.window.Commit(reply)
	res.Reply = reply

	svc.Logger.Debug("turn accepted", map[string]interface{}{
		"session":        ss.id,
		"artifacts":      len(packed.IDs),
		"context_tokens": packed.Tokens,
		"matched_prefix": matched.MatchedPrefix.Len(),
		"displaced_core": res.Displaced,
		"evicted":        res.Evicted,
	})
	return res, nil
}

// persist records an accepted turn. Prefix upserts go first since repeating
// them is harmless; the history entry is appended last so an error means no
// entry was written.
func (ss *Session) persist(ctx context.Context, prompt string, ids []string, matched domain.PrefixKey) error {
	svc := ss.svc
	emitted := domain.NewPrefixKey(ids)
	if !emitted.IsEmpty() {
		if err := svc.Prefixes.RecordPrefixHit(ctx, emitted); err != nil {
			return fmt.Errorf("record prefix: %w", err)
		}
	}
	if !matched.IsEmpty() && matched != emitted {
		if err := svc.Prefixes.RecordPrefixHit(ctx, matched); err != nil {
			return fmt.Errorf("record prefix: %w", err)
		}
	}
	if err := svc.History.RecordPrompt(ctx, ss.id, prompt, ids); err != nil {
		return fmt.Errorf("record prompt: %w", err)
	}
	return nil
}

// assemble retrieves, orders and packs the context for query.
func (ss *Session) assemble(ctx context.Context, query string) (packer.Result, optimizer.Result, error) {
	svc := ss.svc
	budget := svc.Config.FileBudget(svc.Model)

	candidates, err := svc.Retriever.Retrieve(ctx, query, svc.Config.MaxNeighbors(svc.Model), svc.Config.Context.ArtifactMaxDistance)
	if err != nil {
		return packer.Result{}, optimizer.Result{}, fmt.Errorf("retrieve: %w", err)
	}
	pool := retrieval.Pool(candidates, budget)

	history, err := svc.History.AllHistory(ctx)
	if err != nil {
		return packer.Result{}, optimizer.Result{}, fmt.Errorf("load history: %w", err)
	}
	metadata, err := svc.History.MetadataFromHistory(ctx)
	if err != nil {
		return packer.Result{}, optimizer.Result{}, fmt.Errorf("load artifact metadata: %w", err)
	}
	for id, meta := range metadata {
		if artifact, ok := svc.Artifacts.ByID(id); ok {
			meta.LastModified = artifact.LastModified
			metadata[id] = meta
		}
	}
	prefixes, err := svc.Prefixes.NonExpiredPrefixes(ctx)
	if err != nil {
		return packer.Result{}, optimizer.Result{}, fmt.Errorf("load prefix cache: %w", err)
	}

	ordered := ss.optimizer.Optimize(optimizer.Input{
		Candidates: pool,
		History:    history,
		Metadata:   metadata,
		Prefixes:   prefixes,
	})
	packed := packer.Pack(ordered.Order, pool, budget)

	svc.Metrics.ObservePrefix(!ordered.MatchedPrefix.IsEmpty())
	svc.Metrics.ObservePackedTokens(packed.Tokens)
	return packed, ordered, nil
}

// complete streams a completion into out and returns the full reply.
func (ss *Session) complete(ctx context.Context, messages []domain.Message, out domain.StreamWriter) (string, error) {
	stream, err := ss.svc.Completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read completion: %w", err)
		}
		reply.WriteString(chunk)
		if out != nil {
			out.WriteChunk(chunk)
		}
	}
	if out != nil {
		out.Done()
	}
	return reply.String(), nil
}

// displaced counts core ids that did not make it into the context.
func displaced(core, packed []string) int {
	in := make(map[string]struct{}, len(packed))
	for _, id := range packed {
		in[id] = struct{}{}
	}
	n := 0
	for _, id := range core {
		if _, ok := in[id]; !ok {
			n++
		}
	}
	return n
}
