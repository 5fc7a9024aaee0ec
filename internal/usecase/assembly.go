package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inventory-agent/internal/domain"
)

// PendingStore is the pending-operation contract consumed by the
// assembly engine.
type PendingStore interface {
	Get(ctx context.Context, correspondent string, kind domain.OperationKind) (*domain.PendingOperation, error)
	Upsert(ctx context.Context, correspondent string, kind domain.OperationKind, update domain.FieldUpdate) (domain.PendingOperation, error)
	Delete(ctx context.Context, correspondent string, kind domain.OperationKind) error
}

// Finalizer validates a complete pending operation against the record
// store and commits it.
type Finalizer interface {
	Finalize(ctx context.Context, op domain.PendingOperation) (string, error)
}

const resetAcknowledgement = "Okay, I've cancelled that. How else can I help?"

// Assembler is the command assembly engine: it accumulates transaction
// fields across messages, asks for exactly one missing piece at a time,
// and hands complete operations to the finalizer.
type Assembler struct {
	pending   PendingStore
	finalizer Finalizer
	log       *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(pending PendingStore, finalizer Finalizer, log *slog.Logger) (*Assembler, error) {
	if pending == nil {
		return nil, errors.New("usecase: pending store must not be nil")
	}
	if finalizer == nil {
		return nil, errors.New("usecase: finalizer must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{pending: pending, finalizer: finalizer, log: log}, nil
}

// Advance merges the update into the pending operation for
// (correspondent, kind) and returns the next user-facing response:
// a reset acknowledgement, a single targeted question with a summary
// of everything collected, or the finalizer's confirmation once
// nothing is missing. The pending record is deleted only after a
// successful finalization, so a failed commit loses no collected data.
func (a *Assembler) Advance(ctx context.Context, correspondent string, kind domain.OperationKind, update domain.FieldUpdate) (string, error) {
	if update.Reset {
		if err := a.pending.Delete(ctx, correspondent, kind); err != nil {
			return "", newError(ErrorInternal, "pending_delete_error", err)
		}
		return resetAcknowledgement, nil
	}

	op, err := a.pending.Upsert(ctx, correspondent, kind, update)
	if err != nil {
		return "", newError(ErrorInternal, "pending_upsert_error", err)
	}

	question, complete := nextPrompt(op)
	if !complete {
		return question, nil
	}

	confirmation, err := a.finalizer.Finalize(ctx, op)
	if err != nil {
		return "", err
	}
	if err := a.pending.Delete(ctx, correspondent, kind); err != nil {
		// The transaction is committed; a stale pending record only
		// costs an extra reset, so log and report success.
		a.log.Error("failed to delete finalized pending operation",
			"correspondent", correspondent, "kind", kind, "err", err)
	}
	return confirmation, nil
}

// FinalizeExisting finalizes the pending operation for
// (correspondent, kind) without merging anything new. Unlike Advance
// it never creates a record, so asking to finalize with nothing in
// flight reports NOT_FOUND instead of starting an empty flow.
func (a *Assembler) FinalizeExisting(ctx context.Context, correspondent string, kind domain.OperationKind) (string, error) {
	existing, err := a.pending.Get(ctx, correspondent, kind)
	if err != nil {
		return "", newError(ErrorInternal, "pending_get_error", err)
	}
	if existing == nil {
		return "", newSubjectError(ErrorNotFound, "no_pending_operation", string(kind))
	}
	return a.Advance(ctx, correspondent, kind, domain.FieldUpdate{})
}

// Continue routes a free-form follow-up message into the pending flow:
// it parses text into field values against the current operation state
// and advances.
func (a *Assembler) Continue(ctx context.Context, correspondent string, kind domain.OperationKind, text string) (string, error) {
	existing, err := a.pending.Get(ctx, correspondent, kind)
	if err != nil {
		return "", newError(ErrorInternal, "pending_get_error", err)
	}
	op := domain.PendingOperation{Correspondent: correspondent, Kind: kind, Fields: map[string]string{}}
	if existing != nil {
		op = *existing
	}

	update, err := parseContinuation(op, text)
	if err != nil {
		return "", err
	}
	return a.Advance(ctx, correspondent, kind, update)
}

// nextPrompt computes the single next question for the operation, or
// reports it complete. Scanning follows the kind's schema order; for
// sales the priority is customer name, then the first incomplete line
// item, then an empty cart.
func nextPrompt(op domain.PendingOperation) (string, bool) {
	switch op.Kind {
	case domain.KindSale:
		return nextSalePrompt(op)
	default:
		return nextSchemaPrompt(op, domain.PurchaseOrderSchema, "Recording your purchase order.")
	}
}

func nextSchemaPrompt(op domain.PendingOperation, schema []domain.Field, header string) (string, bool) {
	for _, field := range schema {
		if strings.TrimSpace(op.Fields[field.Name]) != "" {
			continue
		}
		return promptFor(header, purchaseSummary(op), field.Label), false
	}
	return "", true
}

func nextSalePrompt(op domain.PendingOperation) (string, bool) {
	header := "Recording your sale."
	if strings.TrimSpace(op.Fields["customer_name"]) == "" {
		return promptFor(header, saleSummary(op), "the customer name"), false
	}
	if name, ok := firstIncompleteItem(op.Items); ok {
		question := fmt.Sprintf("For %q, how many and at what unit price?", name)
		return withSummary(header, saleSummary(op), question), false
	}
	if len(op.Items) == 0 {
		question := fmt.Sprintf("What should I sell to %s? (item, quantity and unit price)", op.Fields["customer_name"])
		return withSummary(header, saleSummary(op), question), false
	}
	return "", true
}

func promptFor(header, summary, label string) string {
	return withSummary(header, summary, fmt.Sprintf("What is %s?", label))
}

func withSummary(header, summary, question string) string {
	if summary == "" {
		return header + "\n" + question
	}
	return header + "\n" + summary + "\n" + question
}

// purchaseSummary renders collected purchase-order fields in schema
// order so repeated prompts stay byte-stable.
func purchaseSummary(op domain.PendingOperation) string {
	var lines []string
	for _, field := range domain.PurchaseOrderSchema {
		if v := strings.TrimSpace(op.Fields[field.Name]); v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", strings.TrimPrefix(field.Label, "the "), v))
		}
	}
	if v := strings.TrimSpace(op.Fields["description"]); v != "" {
		lines = append(lines, "- description: "+v)
	}
	return strings.Join(lines, "\n")
}

// saleSummary renders the customer plus cart contents, flagging lines
// that still miss quantity or price.
func saleSummary(op domain.PendingOperation) string {
	var lines []string
	if v := strings.TrimSpace(op.Fields["customer_name"]); v != "" {
		lines = append(lines, "- customer: "+v)
	}
	for _, li := range op.Items {
		entry := "- " + li.Name
		if li.Quantity != nil {
			entry += fmt.Sprintf(" x%d", *li.Quantity)
		}
		if li.UnitPrice != nil {
			entry += fmt.Sprintf(" at %.2f", *li.UnitPrice)
		}
		if !li.Complete() {
			entry += " (details missing)"
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n")
}
