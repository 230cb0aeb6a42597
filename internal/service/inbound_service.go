package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/config"
	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/lease"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// Keyword is a recognized SMS command.
type Keyword string

const (
	KeywordNone  Keyword = ""
	KeywordStop  Keyword = "stop"
	KeywordStart Keyword = "start"
	KeywordHelp  Keyword = "help"
)

const (
	defaultLeaseTTL  = 30 * time.Second
	defaultLeaseWait = 10 * time.Second
)

// ParseKeyword recognizes commands, trimmed and case-insensitive.
func ParseKeyword(body string) Keyword {
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "stop", "unsubscribe":
		return KeywordStop
	case "start", "subscribe":
		return KeywordStart
	case "help":
		return KeywordHelp
	default:
		return KeywordNone
	}
}

// InboundReply is the acknowledgement sent back to the SMS sender.
type InboundReply struct {
	Message string
	Keyword Keyword
	Result  *ThreadResult
	Err     error
}

// InboundService threads inbound SMS into tickets.
type InboundService struct {
	identities    *IdentityResolver
	locator       *TicketLocator
	mutator       *TicketMutator
	subscriptions *SubscriptionService
	locker        lease.Locker
	leaseTTL      time.Duration
	leaseWait     time.Duration
	replies       config.RepliesConfig
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// InboundDependencies bundles collaborators for inbound handling.
type InboundDependencies struct {
	Identities    *IdentityResolver
	Locator       *TicketLocator
	Mutator       *TicketMutator
	Subscriptions *SubscriptionService
	Locker        lease.Locker
	LeaseTTL      time.Duration
	LeaseWait     time.Duration
	Replies       config.RepliesConfig
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewInboundService constructs the service.
func NewInboundService(deps InboundDependencies) *InboundService {
	svc := &InboundService{
		identities:    deps.Identities,
		locator:       deps.Locator,
		mutator:       deps.Mutator,
		subscriptions: deps.Subscriptions,
		locker:        deps.Locker,
		leaseTTL:      deps.LeaseTTL,
		leaseWait:     deps.LeaseWait,
		replies:       deps.Replies,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
	}
	if svc.leaseTTL <= 0 {
		svc.leaseTTL = defaultLeaseTTL
	}
	if svc.leaseWait <= 0 {
		svc.leaseWait = defaultLeaseWait
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// HandleMessage processes one inbound SMS and returns the reply text. It
// always produces a reply; failures are reported in Err and answered with
// the fallback text.
func (s *InboundService) HandleMessage(ctx context.Context, msg domain.InboundMessage) InboundReply {
	phone, err := domain.NormalizePhone(msg.From)
	if err != nil {
		s.logger.Warn("inbound sms without a usable sender", zap.String("from", msg.From))
		return s.fallback(KeywordNone, apperrors.NewValidationError("invalid sender phone", map[string]any{"from": msg.From}))
	}
	destination, _ := domain.NormalizePhone(msg.To)

	keyword := ParseKeyword(msg.Body)
	if keyword != KeywordNone {
		s.metrics.RecordKeyword(string(keyword))
	}

	switch keyword {
	case KeywordStop:
		if err := s.subscriptions.OptOut(ctx, phone); err != nil {
			s.logger.Error("opt-out not recorded", zap.String("phone", phone.String()), zap.Error(err))
		}
		return InboundReply{Message: s.replies.OptOut, Keyword: keyword}
	case KeywordStart:
		if err := s.subscriptions.OptIn(ctx, phone); err != nil {
			s.logger.Error("opt-in not recorded", zap.String("phone", phone.String()), zap.Error(err))
		}
		return InboundReply{Message: s.replies.OptIn, Keyword: keyword}
	case KeywordHelp:
		if !s.replies.HelpCreatesTicket {
			return InboundReply{Message: s.replies.Help, Keyword: keyword}
		}
		result, err := s.Thread(ctx, phone, InboundContent{Body: s.replies.HelpTicketBody, Source: phone, Destination: destination})
		if err != nil {
			return s.fallback(keyword, err)
		}
		return InboundReply{Message: s.replies.Help, Keyword: keyword, Result: result}
	}

	result, err := s.Thread(ctx, phone, InboundContent{Body: msg.Body, Source: phone, Destination: destination})
	if err != nil {
		return s.fallback(keyword, err)
	}
	return InboundReply{Message: s.replies.AutoReply, Result: result}
}

// Thread runs resolve, locate, decide and mutate for phone while holding
// the per-phone lease.
func (s *InboundService) Thread(ctx context.Context, phone domain.PhoneNumber, content InboundContent) (*ThreadResult, error) {
	release, err := s.acquire(ctx, phone)
	if err != nil {
		return nil, err
	}
	defer release()

	identity := s.identities.ResolveOrCreate(ctx, phone)
	tickets := s.locator.ListTickets(ctx, identity)
	decision := Decide(tickets)
	s.logger.Debug("threading decision",
		zap.String("phone", phone.String()),
		zap.String("decision", string(decision.Kind())),
		zap.Int("tickets", len(tickets)))
	return s.mutator.Apply(ctx, decision, identity, content)
}

// acquire takes the thread lease. Only an unreachable lease store lets
// work proceed unserialized; a peer holding the lease past the wait bound
// is an error, since threading alongside it could duplicate tickets.
func (s *InboundService) acquire(ctx context.Context, phone domain.PhoneNumber) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.leaseWait)
	defer cancel()

	start := time.Now()
	release, err := s.locker.Acquire(waitCtx, lease.ThreadKey(phone.String()), s.leaseTTL)
	s.metrics.ObserveLeaseWait(time.Since(start))
	if err == nil {
		return release, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !errors.Is(err, lease.ErrStoreUnavailable) {
		s.metrics.RecordDegradation("lease_timeout")
		return nil, apperrors.NewLeaseUnavailable(phone.String(), err)
	}
	s.metrics.RecordDegradation("lease_store")
	s.logger.Warn("proceeding without thread lease",
		zap.String("code", apperrors.CodeLeaseUnavailable),
		zap.String("phone", phone.String()),
		zap.Error(err))
	return noop, nil
}

func (s *InboundService) fallback(keyword Keyword, err error) InboundReply {
	domainErr := apperrors.ToDomainError(err)
	s.logger.Error("inbound sms not threaded",
		zap.String("code", domainErr.Code),
		zap.Any("details", domainErr.Details),
		zap.Error(err))
	return InboundReply{Message: s.replies.Fallback, Keyword: keyword, Err: err}
}
