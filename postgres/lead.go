package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	tekio "github.com/tekio-be/leads"
)

// lib/pq errorCodeNames
// https://github.com/lib/pq/blob/master/error.go#L178
const (
	checkViolation            = "23514"
	invalidTextRepresentation = "22P02"
)

const leadColumns = `
		id,
		company_name,
		contact_name,
		email,
		phone,
		language,
		source,
		nb_users_estimate,
		message,
		notes,
		status,
		ai_suggestion,
		created_at,
		updated_at`

type LeadStore struct {
	db *sqlx.DB
}

func NewLeadStore(db *sqlx.DB) *LeadStore {
	return &LeadStore{
		db: db,
	}
}

// Create inserts a lead. The status column is always written as new.
func (ls *LeadStore) Create(ctx context.Context, newLead tekio.NewLead) (tekio.Lead, error) {
	query := `
	INSERT INTO leads (
		company_name, contact_name, email, phone, language, source, nb_users_estimate, message, status
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, 'new'
	)
	RETURNING` + leadColumns

	var lead tekio.Lead
	err := ls.db.QueryRowxContext(ctx, query,
		newLead.CompanyName,
		newLead.ContactName,
		newLead.Email,
		newLead.Phone,
		newLead.Language,
		newLead.Source,
		newLead.NbUsersEstimate,
		newLead.Message,
	).StructScan(&lead)
	if err != nil {
		return tekio.Lead{}, storeErr("create", err)
	}

	return lead, nil
}

func (ls *LeadStore) QueryByID(ctx context.Context, id string) (tekio.Lead, error) {
	query := `
	SELECT` + leadColumns + `
	FROM leads
	WHERE id = $1`

	var lead tekio.Lead
	if err := ls.db.GetContext(ctx, &lead, query, id); err != nil {
		return tekio.Lead{}, storeErr("query by id", err)
	}

	return lead, nil
}

// Query lists leads, newest first.
func (ls *LeadStore) Query(ctx context.Context, filter tekio.LeadFilter) ([]tekio.Lead, error) {
	var (
		where string
		args  []interface{}
	)
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, *filter.Status)
	}

	query := `
	SELECT` + leadColumns + `
	FROM leads
	` + where + `
	ORDER BY created_at DESC`

	leads := []tekio.Lead{}
	if err := ls.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, storeErr("query", err)
	}

	return leads, nil
}

// Update writes only the fields set in update. There is no concurrency check;
// the last write wins.
func (ls *LeadStore) Update(ctx context.Context, id string, update tekio.LeadUpdate) (tekio.Lead, error) {
	if update.Empty() {
		return tekio.Lead{}, &tekio.StoreError{Op: "update", Err: errors.New("no fields to update")}
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if update.AISuggestion != nil {
		add("ai_suggestion", *update.AISuggestion)
	}
	args = append(args, id)

	query := `
	UPDATE leads
	SET ` + strings.Join(sets, ", ") + `, updated_at = now()
	WHERE id = $` + fmt.Sprint(len(args)) + `
	RETURNING` + leadColumns

	var lead tekio.Lead
	if err := ls.db.QueryRowxContext(ctx, query, args...).StructScan(&lead); err != nil {
		return tekio.Lead{}, storeErr("update", err)
	}

	return lead, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &tekio.StoreError{Op: op, Err: tekio.ErrLeadNotFound}
	}

	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		switch pqerr.Code {
		case checkViolation, invalidTextRepresentation:
			return &tekio.StoreError{Op: op, Err: fmt.Errorf("%w: %s", tekio.ErrInvalidLead, pqerr.Message)}
		}
	}

	return &tekio.StoreError{Op: op, Err: err}
}
