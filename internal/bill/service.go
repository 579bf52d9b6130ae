package bill

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

// Common errors
var (
	ErrBillNotFound        = errors.New("bill not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantIdentity = errors.New("either user_id or guest_name is required")
	ErrAlreadyParticipant  = errors.New("user is already a participant of this bill")
)

// Notifier tells connected viewers to re-fetch a bill
type Notifier interface {
	NotifyRefresh(billID int64)
}

// Service handles bill business logic. It is the authority on allocations:
// every mutation reloads persisted state, runs the split engine and the
// settlement rules, and checks the ledger invariant before committing.
type Service struct {
	repo         *Repository
	splitFactory *split.Factory
	notifier     Notifier
	now          func() time.Time
}

// NewService creates a new bill service with dependencies injected
func NewService(repo *Repository, splitFactory *split.Factory, notifier Notifier) *Service {
	return &Service{
		repo:         repo,
		splitFactory: splitFactory,
		notifier:     notifier,
		now:          time.Now,
	}
}

// mutate runs fn against a locked bill inside one transaction and tells
// viewers to refresh once it has committed.
func (s *Service) mutate(ctx context.Context, billID int64, fn func(repo *Repository, b *Bill) error) error {
	err := s.repo.InTx(ctx, func(repo *Repository) error {
		b, err := repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBillNotFound
		}
		return fn(repo, b)
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyRefresh(billID)
	return nil
}

// load returns the bill's participants and re-derives the cached remainder
// from them.
func (s *Service) load(ctx context.Context, repo *Repository, b *Bill) ([]*Participant, error) {
	participants, err := repo.ListParticipants(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.UnallocatedSum = b.TotalSum - split.Sum(Slots(participants))
	return participants, nil
}

// apply persists a strategy's output: changed allocations, the new remainder
// and the split mode.
func (s *Service) apply(ctx context.Context, repo *Repository, b *Bill, participants []*Participant, out *split.Output) error {
	byID := make(map[int64]*Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	for _, slot := range out.Slots {
		p := byID[slot.ParticipantID]
		if p == nil || p.AllocatedAmount == slot.Allocated {
			continue
		}
		p.AllocatedAmount = slot.Allocated
		if err := repo.UpdateParticipant(ctx, p); err != nil {
			return err
		}
	}

	b.SplitType = out.Mode
	b.UnallocatedSum = out.Remainder
	if err := split.Check(b.TotalSum, Slots(participants), b.UnallocatedSum); err != nil {
		return err
	}

	return repo.UpdateBill(ctx, b)
}

// rebalance runs after the participant set changes: equal bills are
// re-split, anything else just recounts the remainder.
func (s *Service) rebalance(ctx context.Context, repo *Repository, b *Bill) error {
	participants, err := s.load(ctx, repo, b)
	if err != nil {
		return err
	}

	if b.SplitType == split.ModeEqual {
		strategy, err := s.splitFactory.Create(split.KindEqual)
		if err != nil {
			return err
		}
		out, err := strategy.Calculate(b.SplitInput(participants))
		switch {
		case err == nil:
			return s.apply(ctx, repo, b, participants, out)
		case errors.Is(err, split.ErrNoUnpaid), errors.Is(err, split.ErrNoParticipants):
			// nobody left to spread over
		default:
			return err
		}
	}

	if err := split.Check(b.TotalSum, Slots(participants), b.UnallocatedSum); err != nil {
		return err
	}
	return repo.UpdateBill(ctx, b)
}

func (s *Service) ensureUser(ctx context.Context, repo *Repository, userID int64) error {
	ok, err := repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func ensureOwner(b *Bill, actorID int64) error {
	if b.OwnerID != actorID {
		return settlement.ErrNotOwner
	}
	return nil
}

// CreateBill creates a bill with everything unallocated
func (s *Service) CreateBill(ctx context.Context, actorID int64, req *CreateBillRequest) (*Bill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ownerID := req.OwnerID
	if ownerID == 0 {
		ownerID = actorID
	}

	var created *Bill
	err := s.repo.InTx(ctx, func(repo *Repository) error {
		if err := s.ensureUser(ctx, repo, ownerID); err != nil {
			return err
		}

		total := amount.ToMinor(req.TotalSum)
		b, err := repo.CreateBill(ctx, &Bill{
			OwnerID:        ownerID,
			Title:          strings.TrimSpace(req.Title),
			TotalSum:       total,
			UnallocatedSum: total,
			PaymentDetails: req.PaymentDetails,
			SplitType:      split.ModeManual,
			Status:         settlement.StatusOpen,
			CreatedAt:      s.now(),
		})
		if err != nil {
			return err
		}

		if req.IncludeOwner {
			if _, err := repo.CreateParticipant(ctx, &Participant{BillID: b.ID, UserID: &ownerID}); err != nil {
				return err
			}
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetDetail retrieves a bill with its items and participants
func (s *Service) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBillNotFound
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Detail{Bill: b, Items: items, Participants: participants}, nil
}

// ListForUser retrieves a page of the bills a user owns or takes part in
func (s *Service) ListForUser(ctx context.Context, userID int64, page, limit int) ([]*Bill, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// AddItem adds a descriptive line; the remainder is not affected
func (s *Service) AddItem(ctx context.Context, billID, actorID int64, req *AddItemRequest) (*Item, error) {
	price, sum, err := req.amounts()
	if err != nil {
		return nil, err
	}

	var created *Item
	err = s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := ensureOwner(b, actorID); err != nil {
			return err
		}
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}
		if req.AssignedToUserID != nil {
			if err := s.ensureUser(ctx, repo, *req.AssignedToUserID); err != nil {
				return err
			}
		}

		it, err := repo.CreateItem(ctx, &Item{
			BillID:           b.ID,
			Name:             req.Name,
			Price:            price,
			Count:            req.Count,
			ItemSum:          sum,
			AssignedToUserID: req.AssignedToUserID,
		})
		if err != nil {
			return err
		}
		created = it
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// DeleteItem removes a line item
func (s *Service) DeleteItem(ctx context.Context, billID, itemID, actorID int64) error {
	return s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := ensureOwner(b, actorID); err != nil {
			return err
		}
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}

		ok, err := repo.DeleteItem(ctx, b.ID, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrItemNotFound
		}
		return nil
	})
}

// AddParticipant adds a user or a guest and returns the full participant list
func (s *Service) AddParticipant(ctx context.Context, billID, actorID int64, req *AddParticipantRequest) ([]*Participant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var participants []*Participant
	err := s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := ensureOwner(b, actorID); err != nil {
			return err
		}
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}

		p := &Participant{BillID: b.ID}
		if req.UserID != nil {
			if err := s.ensureUser(ctx, repo, *req.UserID); err != nil {
				return err
			}
			existing, err := repo.GetParticipantByUser(ctx, b.ID, *req.UserID)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrAlreadyParticipant
			}
			p.UserID = req.UserID
		} else {
			name := strings.TrimSpace(*req.GuestName)
			p.GuestName = &name
		}

		if _, err := repo.CreateParticipant(ctx, p); err != nil {
			return err
		}
		if err := s.rebalance(ctx, repo, b); err != nil {
			return err
		}

		list, err := repo.ListParticipants(ctx, b.ID)
		if err != nil {
			return err
		}
		participants = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	return participants, nil
}

// Join adds the caller to a bill. Joining twice returns the existing row.
func (s *Service) Join(ctx context.Context, billID, userID int64) (*Participant, error) {
	existing, err := s.repo.GetParticipantByUser(ctx, billID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var joined *Participant
	err = s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}
		if err := s.ensureUser(ctx, repo, userID); err != nil {
			return err
		}

		// lost a race with another join for the same user
		again, err := repo.GetParticipantByUser(ctx, b.ID, userID)
		if err != nil {
			return err
		}
		if again != nil {
			joined = again
			return nil
		}

		if _, err := repo.CreateParticipant(ctx, &Participant{BillID: b.ID, UserID: &userID}); err != nil {
			return err
		}
		if err := s.rebalance(ctx, repo, b); err != nil {
			return err
		}

		p, err := repo.GetParticipantByUser(ctx, b.ID, userID)
		joined = p
		return err
	})
	if err != nil {
		return nil, err
	}

	return joined, nil
}

// RemoveParticipant deletes a non-owner participant and returns the whole
// bill, since removal moves money: manual bills get the amount back in the
// remainder, equal bills are re-split.
func (s *Service) RemoveParticipant(ctx context.Context, billID, participantID, actorID int64) (*Detail, error) {
	err := s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		p, err := repo.GetParticipant(ctx, b.ID, participantID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrParticipantNotFound
		}
		if err := settlement.CanRemoveParticipant(b.OwnerID, actorID, p.UserID, b.Status); err != nil {
			return err
		}

		if p.UserID != nil {
			if err := repo.UnassignItems(ctx, b.ID, *p.UserID); err != nil {
				return err
			}
		}
		if err := repo.DeleteParticipant(ctx, b.ID, p.ID); err != nil {
			return err
		}

		return s.rebalance(ctx, repo, b)
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, billID)
}

// SplitEqually splits the whole bill among unpaid participants
func (s *Service) SplitEqually(ctx context.Context, billID, actorID int64) ([]*Participant, error) {
	return s.runSplit(ctx, billID, actorID, split.KindEqual, func(in *split.Input) {})
}

// SplitRemainder shares the unallocated remainder among participantIDs
func (s *Service) SplitRemainder(ctx context.Context, billID, actorID int64, participantIDs []int64) ([]*Participant, error) {
	return s.runSplit(ctx, billID, actorID, split.KindRemainder, func(in *split.Input) {
		in.Selected = participantIDs
	})
}

func (s *Service) runSplit(ctx context.Context, billID, actorID int64, kind split.Kind, prepare func(in *split.Input)) ([]*Participant, error) {
	strategy, err := s.splitFactory.Create(kind)
	if err != nil {
		return nil, err
	}

	var participants []*Participant
	err = s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := ensureOwner(b, actorID); err != nil {
			return err
		}
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}

		ps, err := s.load(ctx, repo, b)
		if err != nil {
			return err
		}

		in := b.SplitInput(ps)
		prepare(&in)
		out, err := strategy.Calculate(in)
		if err != nil {
			return err
		}

		participants = ps
		return s.apply(ctx, repo, b, ps, out)
	})
	if err != nil {
		return nil, err
	}

	return participants, nil
}

// AssignAmount sets one participant's allocation. Unlike the client, which
// clamps against its last-known remainder, the server rejects anything above
// what is available right now.
func (s *Service) AssignAmount(ctx context.Context, billID, actorID int64, req *AssignAmountRequest) (*Participant, error) {
	if req.Amount.IsNegative() {
		return nil, split.ErrNegativeAmount
	}
	requested, err := req.Validate()
	if err != nil {
		return nil, err
	}

	strategy, err := s.splitFactory.Create(split.KindManual)
	if err != nil {
		return nil, err
	}

	var assigned *Participant
	err = s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := ensureOwner(b, actorID); err != nil {
			return err
		}
		if err := settlement.EnsureOpen(b.Status); err != nil {
			return err
		}

		ps, err := s.load(ctx, repo, b)
		if err != nil {
			return err
		}

		in := b.SplitInput(ps)
		in.Target, in.Requested = req.ParticipantID, requested

		limit, err := split.MaxAssignable(in)
		if err != nil {
			return ErrParticipantNotFound
		}
		if requested > limit {
			return &split.ExceedsError{Max: limit}
		}

		out, err := strategy.Calculate(in)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, repo, b, ps, out); err != nil {
			return err
		}

		for _, p := range ps {
			if p.ID == req.ParticipantID {
				assigned = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assigned, nil
}

// SetPaymentStatus applies a payment toggle and moves the bill between open
// and paid as needed
func (s *Service) SetPaymentStatus(ctx context.Context, billID, participantID, actorID int64, isPaid bool) (*Participant, error) {
	var updated *Participant
	err := s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		p, err := repo.GetParticipant(ctx, b.ID, participantID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrParticipantNotFound
		}

		tr, err := settlement.TogglePaid(b.Subject(p), actorID, isPaid)
		if err != nil {
			return err
		}
		updated = p
		if tr.Noop() {
			return nil
		}

		p.IsPaid = isPaid
		if err := repo.UpdateParticipant(ctx, p); err != nil {
			return err
		}

		ps, err := repo.ListParticipants(ctx, b.ID)
		if err != nil {
			return err
		}
		if next := settlement.NextStatus(b.Status, b.OwnerID, Payers(ps)); next != b.Status {
			slog.Info("bill status changed", "bill_id", b.ID, "from", b.Status, "to", next)
			b.Status = next
			return repo.UpdateBill(ctx, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// CloseBill lets the owner finalize a bill; the owner's own share is
// marked paid on the way out
func (s *Service) CloseBill(ctx context.Context, billID, actorID int64) (*Bill, error) {
	var closed *Bill
	err := s.mutate(ctx, billID, func(repo *Repository, b *Bill) error {
		if err := settlement.Close(b.OwnerID, actorID, b.Status); err != nil {
			return err
		}

		ownerRow, err := repo.GetParticipantByUser(ctx, b.ID, b.OwnerID)
		if err != nil {
			return err
		}
		if ownerRow != nil && !ownerRow.IsPaid {
			ownerRow.IsPaid = true
			if err := repo.UpdateParticipant(ctx, ownerRow); err != nil {
				return err
			}
		}

		b.Status = settlement.StatusClosed
		b.IsClosed = true
		closed = b
		return repo.UpdateBill(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

// Audit re-derives the cached remainder of every open bill and repairs
// drift. It returns how many bills were fixed.
func (s *Service) Audit(ctx context.Context) (int, error) {
	ids, err := s.repo.ListOpenBillIDs(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, id := range ids {
		var fixed bool
		err := s.repo.InTx(ctx, func(repo *Repository) error {
			b, err := repo.GetBillForUpdate(ctx, id)
			if err != nil || b == nil {
				return err
			}

			cached := b.UnallocatedSum
			if _, err := s.load(ctx, repo, b); err != nil {
				return err
			}
			if b.UnallocatedSum == cached {
				return nil
			}
			if b.UnallocatedSum < 0 {
				slog.Warn("bill is over-allocated", "bill_id", id, "total", b.TotalSum, "remainder", b.UnallocatedSum)
				return nil
			}

			slog.Info("repaired cached remainder", "bill_id", id, "was", cached, "now", b.UnallocatedSum)
			fixed = true
			return repo.UpdateBill(ctx, b)
		})
		if err != nil {
			return repaired, err
		}
		if fixed {
			repaired++
			s.notifier.NotifyRefresh(id)
		}
	}

	return repaired, nil
}
