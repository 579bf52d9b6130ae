package bill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fkhayef/splitthebill/internal/database"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

// Repository handles bill, item and participant persistence
type Repository struct {
	db *database.DB
	q  database.Querier
}

// NewRepository creates a new bill repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, q: db}
}

// InTx runs fn with a repository bound to a single transaction
func (r *Repository) InTx(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&Repository{db: r.db, q: tx})
	})
}

const billColumns = `id, owner_id, title, total_sum, unallocated_sum, payment_details, is_closed, split_type, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner, extra ...any) (*Bill, error) {
	b := &Bill{}
	var createdAt int64
	dest := append([]any{
		&b.ID,
		&b.OwnerID,
		&b.Title,
		&b.TotalSum,
		&b.UnallocatedSum,
		&b.PaymentDetails,
		&b.IsClosed,
		&b.SplitType,
		&b.Status,
		&createdAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return b, nil
}

// CreateBill inserts a new bill
func (r *Repository) CreateBill(ctx context.Context, b *Bill) (*Bill, error) {
	query := `
		INSERT INTO bills (owner_id, title, total_sum, unallocated_sum, payment_details, is_closed, split_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + billColumns

	created, err := scanBill(r.q.QueryRowContext(ctx, query,
		b.OwnerID,
		b.Title,
		b.TotalSum,
		b.UnallocatedSum,
		b.PaymentDetails,
		b.IsClosed,
		b.SplitType,
		b.Status,
		b.CreatedAt.Unix(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	return created, nil
}

// GetBill retrieves a bill by its ID
func (r *Repository) GetBill(ctx context.Context, id int64) (*Bill, error) {
	return r.getBill(ctx, id, "")
}

// GetBillForUpdate retrieves a bill and locks its row for the transaction
func (r *Repository) GetBillForUpdate(ctx context.Context, id int64) (*Bill, error) {
	return r.getBill(ctx, id, r.db.ForUpdate())
}

func (r *Repository) getBill(ctx context.Context, id int64, lock string) (*Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1` + lock

	b, err := scanBill(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return b, nil
}

// UpdateBill persists the derived and lifecycle fields of a bill
func (r *Repository) UpdateBill(ctx context.Context, b *Bill) error {
	query := `
		UPDATE bills
		SET unallocated_sum = $1, split_type = $2, status = $3, is_closed = $4
		WHERE id = $5
	`

	if _, err := r.q.ExecContext(ctx, query, b.UnallocatedSum, b.SplitType, b.Status, b.IsClosed, b.ID); err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return nil
}

// ListByUser retrieves bills a user owns or takes part in, newest first
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Bill, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM bills b
		WHERE b.owner_id = $1
		   OR EXISTS (SELECT 1 FROM bill_participants p WHERE p.bill_id = b.id AND p.user_id = $1)
	`

	var total int
	if err := r.q.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	query := `
		SELECT b.id, b.owner_id, b.title, b.total_sum, b.unallocated_sum, b.payment_details,
		       b.is_closed, b.split_type, b.status, b.created_at,
		       (SELECT COUNT(*) FROM bill_participants c WHERE c.bill_id = b.id)
		FROM bills b
		WHERE b.owner_id = $1
		   OR EXISTS (SELECT 1 FROM bill_participants p WHERE p.bill_id = b.id AND p.user_id = $1)
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*Bill
	for rows.Next() {
		var count int
		b, err := scanBill(rows, &count)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bill: %w", err)
		}
		b.ParticipantsCount = count
		bills = append(bills, b)
	}

	return bills, total, rows.Err()
}

// ListOpenBillIDs returns every bill that still accepts allocation changes
func (r *Repository) ListOpenBillIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM bills WHERE status = $1 ORDER BY id`, settlement.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open bills: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UserExists reports whether a user row exists
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return true, nil
}

// CreateItem inserts a line item
func (r *Repository) CreateItem(ctx context.Context, it *Item) (*Item, error) {
	query := `
		INSERT INTO bill_items (bill_id, name, price, quantity, item_sum, assigned_to_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, bill_id, name, price, quantity, item_sum, assigned_to_user_id
	`

	created := &Item{}
	err := r.q.QueryRowContext(ctx, query,
		it.BillID,
		it.Name,
		it.Price,
		it.Count,
		it.ItemSum,
		it.AssignedToUserID,
	).Scan(
		&created.ID,
		&created.BillID,
		&created.Name,
		&created.Price,
		&created.Count,
		&created.ItemSum,
		&created.AssignedToUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return created, nil
}

// ListItems retrieves every item of a bill in insertion order
func (r *Repository) ListItems(ctx context.Context, billID int64) ([]*Item, error) {
	query := `
		SELECT id, bill_id, name, price, quantity, item_sum, assigned_to_user_id
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		if err := rows.Scan(&it.ID, &it.BillID, &it.Name, &it.Price, &it.Count, &it.ItemSum, &it.AssignedToUserID); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// DeleteItem removes an item, reporting whether it existed
func (r *Repository) DeleteItem(ctx context.Context, billID, itemID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1 AND id = $2`, billID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return n > 0, nil
}

// UnassignItems clears the assignee of every item held by userID
func (r *Repository) UnassignItems(ctx context.Context, billID, userID int64) error {
	query := `UPDATE bill_items SET assigned_to_user_id = NULL WHERE bill_id = $1 AND assigned_to_user_id = $2`
	if _, err := r.q.ExecContext(ctx, query, billID, userID); err != nil {
		return fmt.Errorf("failed to unassign items: %w", err)
	}
	return nil
}

// CreateParticipant inserts a participant row
func (r *Repository) CreateParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	query := `
		INSERT INTO bill_participants (bill_id, user_id, guest_name, allocated_amount, is_paid)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	created := *p
	if err := r.q.QueryRowContext(ctx, query, p.BillID, p.UserID, p.GuestName, p.AllocatedAmount, p.IsPaid).Scan(&created.ID); err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	return &created, nil
}

const participantSelect = `
	SELECT p.id, p.bill_id, p.user_id, p.guest_name, p.allocated_amount, p.is_paid, u.username, u.avatar_url
	FROM bill_participants p
	LEFT JOIN users u ON u.id = p.user_id
`

func scanParticipant(row scanner) (*Participant, error) {
	p := &Participant{}
	err := row.Scan(&p.ID, &p.BillID, &p.UserID, &p.GuestName, &p.AllocatedAmount, &p.IsPaid, &p.Username, &p.AvatarURL)
	return p, err
}

// ListParticipants retrieves every participant of a bill in join order
func (r *Repository) ListParticipants(ctx context.Context, billID int64) ([]*Participant, error) {
	rows, err := r.q.QueryContext(ctx, participantSelect+` WHERE p.bill_id = $1 ORDER BY p.id`, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// GetParticipant retrieves one participant of a bill
func (r *Repository) GetParticipant(ctx context.Context, billID, participantID int64) (*Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx,
		participantSelect+` WHERE p.bill_id = $1 AND p.id = $2`, billID, participantID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetParticipantByUser retrieves the participant row linked to userID
func (r *Repository) GetParticipantByUser(ctx context.Context, billID, userID int64) (*Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx,
		participantSelect+` WHERE p.bill_id = $1 AND p.user_id = $2`, billID, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// UpdateParticipant persists allocation and payment state
func (r *Repository) UpdateParticipant(ctx context.Context, p *Participant) error {
	query := `UPDATE bill_participants SET allocated_amount = $1, is_paid = $2 WHERE id = $3`
	if _, err := r.q.ExecContext(ctx, query, p.AllocatedAmount, p.IsPaid, p.ID); err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

// DeleteParticipant removes a participant row
func (r *Repository) DeleteParticipant(ctx context.Context, billID, participantID int64) error {
	query := `DELETE FROM bill_participants WHERE bill_id = $1 AND id = $2`
	if _, err := r.q.ExecContext(ctx, query, billID, participantID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}
