package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/revtax/internal/alerts"
	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/shared"
	"github.com/odyssey-erp/revtax/internal/tax"
)

const (
	itemFetchLimit     = 8
	summaryFillTimeout = 30 * time.Second
)

// Config groups Service dependencies.
type Config struct {
	Orders     OrderStore
	Items      ItemStore
	Profiles   ProfileStore
	Calculator *tax.Calculator
	Scheduler  *tax.Scheduler
	Dispatcher *alerts.Dispatcher
	Cache      *Cache
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Location   *time.Location
	Now        func() time.Time
}

// Service exposes the revenue, deadline and alert queries for the owner
// carried in the request context.
type Service struct {
	orders     OrderStore
	items      ItemStore
	profiles   ProfileStore
	calc       *tax.Calculator
	sched      *tax.Scheduler
	dispatcher *alerts.Dispatcher
	cache      *Cache
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
	loc        *time.Location
	now        func() time.Time
	group      singleflight.Group
}

// NewService wires the collaborators.
func NewService(cfg Config) (*Service, error) {
	if cfg.Orders == nil || cfg.Items == nil || cfg.Profiles == nil {
		return nil, errors.New("compliance: order, item and profile stores required")
	}
	if cfg.Calculator == nil {
		return nil, errors.New("compliance: calculator required")
	}
	svc := &Service{
		orders:     cfg.Orders,
		items:      cfg.Items,
		profiles:   cfg.Profiles,
		calc:       cfg.Calculator,
		sched:      cfg.Scheduler,
		dispatcher: cfg.Dispatcher,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.sched == nil {
		svc.sched = tax.NewScheduler(svc.loc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Location is the zone periods are resolved in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// ComputeRevenueSummary aggregates the period and applies the owner's tax
// policy. Summaries of elapsed windows are cached.
func (s *Service) ComputeRevenueSummary(ctx context.Context, spec revenue.PeriodSpec) (Summary, error) {
	ownerID, profile, err := s.ownerProfile(ctx)
	if err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, ownerID, profile, spec)
}

// ComputeDeadline returns the next compliance deadline for the owner.
func (s *Service) ComputeDeadline(ctx context.Context, spec revenue.PeriodSpec) (tax.Deadline, error) {
	_, profile, err := s.ownerProfile(ctx)
	if err != nil {
		return tax.Deadline{}, err
	}
	return s.sched.Next(spec.Kind, profile, s.now())
}

// CheckAndDispatchAlerts fires every crossed reminder threshold that has not
// been sent for the upcoming deadline and returns the ones fired by this call.
// The reminder summarises the period the deadline settles, so the reference
// date of spec is ignored; only its kind is used.
func (s *Service) CheckAndDispatchAlerts(ctx context.Context, spec revenue.PeriodSpec) ([]alerts.Threshold, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("%w: alert dispatcher not configured", tax.ErrConfiguration)
	}
	ownerID, profile, err := s.ownerProfile(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	deadline, err := s.sched.Next(spec.Kind, profile, now)
	if err != nil {
		return nil, err
	}
	if !s.anyCrossed(now, deadline.NextDeadline) {
		return []alerts.Threshold{}, nil
	}

	reporting := revenue.PeriodSpec{
		Kind:      spec.Kind,
		Reference: tax.ReportingReference(deadline.Regime, deadline.NextDeadline),
	}
	summary, err := s.summary(ctx, ownerID, profile, reporting)
	if err != nil {
		return nil, err
	}
	due := alerts.Due{
		PeriodKey:     alerts.PeriodKey(ownerID, string(deadline.Regime), deadline.NextDeadline),
		Deadline:      deadline.NextDeadline,
		DaysRemaining: deadline.DaysRemaining,
	}
	return s.dispatcher.Dispatch(ctx, now, due, func(threshold alerts.Threshold) alerts.Request {
		return buildRequest(profile, summary, deadline)
	})
}

// Sweep runs CheckAndDispatchAlerts for every active owner, continuing past
// per-owner failures.
func (s *Service) Sweep(ctx context.Context, kindFor func(tax.Profile) revenue.PeriodKind) (int, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return 0, err
	}
	fired := 0
	var errs []error
	for _, profile := range profiles {
		kind := revenue.PeriodQuarter
		if kindFor != nil {
			kind = kindFor(profile)
		}
		ownerCtx := shared.ContextWithOwner(ctx, profile.OwnerID)
		sent, err := s.CheckAndDispatchAlerts(ownerCtx, revenue.PeriodSpec{Kind: kind})
		if err != nil {
			s.logger.Error("alert sweep", slog.Int64("owner_id", profile.OwnerID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		fired += len(sent)
	}
	return fired, errors.Join(errs...)
}

// ReportingKind maps a profile to the period its reminders summarise.
func ReportingKind(profile tax.Profile) revenue.PeriodKind {
	if profile.GSTRegistered {
		return revenue.PeriodMonth
	}
	return revenue.PeriodQuarter
}

func (s *Service) anyCrossed(now, deadline time.Time) bool {
	for _, threshold := range s.dispatcher.Thresholds() {
		if !now.Before(threshold.TriggerDate(deadline)) {
			return true
		}
	}
	return false
}

func (s *Service) ownerProfile(ctx context.Context) (int64, *tax.Profile, error) {
	ownerID, err := shared.OwnerFromContext(ctx)
	if err != nil {
		return 0, nil, err
	}
	profile, err := s.profiles.GetTaxProfile(ctx, ownerID)
	if err != nil {
		if errors.Is(err, tax.ErrProfileNotFound) {
			return 0, nil, fmt.Errorf("%w: %w", tax.ErrConfiguration, err)
		}
		return 0, nil, err
	}
	if profile == nil {
		return 0, nil, fmt.Errorf("%w: owner %d has no tax profile", tax.ErrConfiguration, ownerID)
	}
	return ownerID, profile, nil
}

func (s *Service) summary(ctx context.Context, ownerID int64, profile *tax.Profile, spec revenue.PeriodSpec) (Summary, error) {
	window, err := spec.Window()
	if err != nil {
		return Summary{}, err
	}
	flightKey := fmt.Sprintf("%d:%s:%s:%t", ownerID, spec.Kind, window.Start.Format(time.RFC3339), profile.GSTRegistered)
	value, err, _ := s.group.Do(flightKey, func() (any, error) {
		// The fill is shared with followers and outlives the leader's request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryFillTimeout)
		defer cancel()
		if s.cache == nil || !window.ClosedBy(s.now()) {
			return s.buildSummary(ctx, ownerID, profile, window)
		}
		key, err := s.cache.BuildKey(ctx, "revtax", "summary", strconv.FormatInt(ownerID, 10), string(spec.Kind),
			window.Start.Format(revenue.DateLayout), string(profile.Regime()))
		if err != nil {
			return nil, err
		}
		var cached Summary
		err = s.cache.FetchJSON(ctx, key, &cached, func(ctx context.Context) (any, error) {
			return s.buildSummary(ctx, ownerID, profile, window)
		})
		return cached, err
	})
	if err != nil {
		return Summary{}, err
	}
	return value.(Summary), nil
}

func (s *Service) buildSummary(ctx context.Context, ownerID int64, profile *tax.Profile, window revenue.Window) (Summary, error) {
	orders, err := s.orders.ListOrders(ctx, ownerID, window)
	if err != nil {
		return Summary{}, err
	}
	items, err := s.loadItems(ctx, revenue.UnfrozenItemIDs(orders))
	if err != nil {
		return Summary{}, err
	}
	totals, err := revenue.Aggregate(orders, window, revenue.CurrentDiscounts(items))
	if err != nil {
		return Summary{}, err
	}
	totals.TaxableAmount = s.clamp(ownerID, window.Label, "taxable_amount", totals.TaxableAmount)

	result, clamped, err := s.calc.Compute(totals.TaxableAmount, profile)
	if err != nil {
		return Summary{}, err
	}
	if clamped {
		s.reportIntegrity(ownerID, window.Label, "tax_base", totals.TaxableAmount)
	}
	result.TotalTax = s.clamp(ownerID, window.Label, "total_tax", result.TotalTax)

	return Summary{
		Period:        window.Label,
		WindowStart:   window.Start,
		WindowEnd:     window.End,
		TotalRevenue:  totals.TotalRevenue,
		TotalDiscount: totals.TotalDiscount,
		TaxableAmount: totals.TaxableAmount,
		OrderCount:    totals.OrderCount,
		Regime:        result.Regime,
		TaxBreakdown:  result.Breakdown,
		TotalTax:      result.TotalTax,
	}, nil
}

// clamp zeroes a negative amount; it indicates an upstream data defect.
func (s *Service) clamp(ownerID int64, period, field string, value float64) float64 {
	if value >= 0 {
		return value
	}
	s.reportIntegrity(ownerID, period, field, value)
	return 0
}

func (s *Service) reportIntegrity(ownerID int64, period, field string, value float64) {
	s.logger.Warn("negative amount clamped",
		slog.Int64("owner_id", ownerID),
		slog.String("period", period),
		slog.String("field", field),
		slog.Float64("value", value),
		slog.Any("error", revenue.ErrIntegrity))
	s.metrics.IntegrityClamp(field)
}

func (s *Service) loadItems(ctx context.Context, ids []int64) (map[int64]revenue.Item, error) {
	items := make(map[int64]revenue.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemFetchLimit)
	for _, id := range ids {
		g.Go(func() error {
			item, err := s.items.GetItem(gctx, id)
			if err != nil {
				if errors.Is(err, revenue.ErrItemNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			items[id] = item
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compliance: load items: %w", err)
	}
	return items, nil
}

func buildRequest(profile *tax.Profile, summary Summary, deadline tax.Deadline) alerts.Request {
	lines := make([]alerts.BreakdownLine, 0, len(summary.TaxBreakdown))
	for _, c := range summary.TaxBreakdown {
		lines = append(lines, alerts.BreakdownLine{Name: c.Name, Amount: c.Amount})
	}
	return alerts.Request{
		Recipient:     profile.Email,
		OwnerName:     profile.Name,
		Period:        summary.Period,
		Revenue:       summary.TotalRevenue,
		Breakdown:     lines,
		TaxDue:        summary.TotalTax,
		Deadline:      deadline.NextDeadline,
		DaysRemaining: deadline.DaysRemaining,
	}
}
