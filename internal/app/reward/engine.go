package reward

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
	"server-reward-engine/internal/pkg/metrics"
	"server-reward-engine/internal/pkg/util"
)

const (
	defaultMaxInfinityDepth    = 1
	defaultRecentActivityLimit = 10
	defaultMaxSlotsPerEvent    = 1000
)

type Options struct {
	// MaxInfinityDepth bounds how many generations of infinity slots one cascade may pay tier 4 for.
	MaxInfinityDepth    int
	// MaxSlotsPerEvent caps the slots one point event may convert; larger deltas are rejected.
	MaxSlotsPerEvent    int
	RecentActivityLimit int
	Location            *time.Location
	Now                 func() time.Time
	Rand                *rand.Rand
	Metrics             *metrics.RewardMetrics
}

// Engine applies point events, tier payouts, commissions and settlements to the ledger store.
// Every exported mutation runs in a single database transaction.
type Engine struct {
	db   *gorm.DB
	opts Options

	randMu sync.Mutex
}

func New(db *gorm.DB, opts Options) *Engine {
	if opts.MaxInfinityDepth <= 0 {
		opts.MaxInfinityDepth = defaultMaxInfinityDepth
	}
	if opts.MaxSlotsPerEvent <= 0 {
		opts.MaxSlotsPerEvent = defaultMaxSlotsPerEvent
	}
	if opts.RecentActivityLimit <= 0 {
		opts.RecentActivityLimit = defaultRecentActivityLimit
	}
	if opts.Location == nil {
		opts.Location = util.Loc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{db: db, opts: opts}
}

// randBetween returns an integer in [min, max].
func (e *Engine) randBetween(min, max int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return min + e.opts.Rand.Intn(max-min+1)
}

// cascade is the unit of work for one triggering event: the locked ledger rows,
// the pending slot creations and what to report once the transaction commits.
type cascade struct {
	e  *Engine
	tx *gorm.DB

	customer      *model.Customer
	referrer      *model.Customer
	referrerGone  bool
	customerDirty bool
	referrerDirty bool

	queue   []slotTask
	created []*model.RewardSlot

	// observed after commit
	points      map[string]decimal.Decimal
	localSlots  int
	tierPaid    []int
	commissions []string
	missing     int
}

func (e *Engine) transaction(ctx context.Context, op string, fn func(c *cascade) error) (*cascade, error) {
	var done *cascade
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := &cascade{e: e, tx: tx, points: make(map[string]decimal.Decimal)}
		if err := fn(c); err != nil {
			return err
		}
		if err := c.flush(); err != nil {
			return err
		}
		done = c
		return nil
	})
	if err != nil {
		e.opts.Metrics.ObserveFailure(op)
		return nil, err
	}
	done.observe()
	return done, nil
}

// load locks the customer row and, when asked, its direct referrer. Locks are always
// taken customer first, referrer second and the slot sequence last.
func (c *cascade) load(customerID uint64, withReferrer bool) error {
	cu, err := dao.Customer.GetForUpdate(c.tx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customerNotFound(customerID)
	}
	if err != nil {
		return errors.Wrap(err, "lock customer")
	}
	c.customer = &cu

	if !withReferrer || cu.ReferredBy == nil {
		return nil
	}
	ref, err := dao.Customer.GetForUpdate(c.tx, *cu.ReferredBy)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.referrerGone = true
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "lock referrer")
	}
	c.referrer = &ref
	return nil
}

// referrerFor returns the locked referrer, logging the skip when it vanished.
func (c *cascade) referrerFor(kind string) *model.Customer {
	if c.referrer != nil {
		return c.referrer
	}
	if c.referrerGone {
		w := ReferrerMissingWarning{CustomerID: c.customer.ID, ReferrerID: *c.customer.ReferredBy, Kind: kind}
		log.WithFields(log.Fields{
			"customer_id": w.CustomerID,
			"referrer_id": w.ReferrerID,
			"kind":        kind,
		}).Warn(w.Error())
		c.missing++
	}
	return nil
}

func (c *cascade) appendTx(t *model.PointTransaction) error {
	t.CreatedAt = c.e.opts.Now()
	return errors.Wrapf(dao.PointTransaction.Append(c.tx, t), "append %s transaction", t.Type)
}

func (c *cascade) credit(cu *model.Customer, amount decimal.Decimal) {
	cu.TotalRewards = cu.TotalRewards.Add(amount)
	if cu == c.customer {
		c.customerDirty = true
	} else {
		c.referrerDirty = true
	}
}

func (c *cascade) flush() error {
	if c.customer != nil && c.customerDirty {
		if err := c.save(c.customer); err != nil {
			return err
		}
	}
	if c.referrer != nil && c.referrerDirty {
		if err := c.save(c.referrer); err != nil {
			return err
		}
	}
	return nil
}

func (c *cascade) save(cu *model.Customer) error {
	err := dao.Customer.Save(c.tx, cu)
	if errors.Is(err, dao.ErrStaleVersion) {
		return &ConcurrentUpdateError{CustomerID: cu.ID}
	}
	return errors.Wrap(err, "save customer")
}

func (c *cascade) observe() {
	m := c.e.opts.Metrics
	for kind, p := range c.points {
		f, _ := p.Float64()
		m.ObservePoints(kind, f)
	}
	m.ObserveSlots("accumulation", c.localSlots)
	m.ObserveSlots("infinity", len(c.created)-c.localSlots)
	for _, t := range c.tierPaid {
		m.ObserveTierPayout(t)
	}
	for _, k := range c.commissions {
		m.ObserveCommission(k)
	}
	for i := 0; i < c.missing; i++ {
		m.ObserveReferrerMissing()
	}
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
