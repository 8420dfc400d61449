package core

import (
	"context"

	"kittycore/pkg/domain"
)

func validateRecipient(op string, to domain.Address) error {
	if to.IsZero() {
		return domain.Failf(domain.ErrInvalidArgument, op, "recipient is the zero address")
	}
	if domain.IsEscrowAddress(to) {
		return domain.Failf(domain.ErrInvalidArgument, op, "kitties enter %s only through auction creation", to)
	}
	return nil
}

// move reassigns custody, consumes any siring approval and records the transfer.
func move(tx domain.Transaction, id domain.KittyID, from, to domain.Address) error {
	if err := tx.Assign(id, from, to); err != nil {
		return err
	}
	tx.ClearSiringApproval(id)
	tx.Emit(domain.Event{Kind: domain.EventTransfer, KittyID: id, From: from, To: to})
	return nil
}

// Transfer moves a kitty owned by caller to another account.
func (s *Service) Transfer(ctx context.Context, id domain.KittyID, to, caller domain.Address) error {
	const op = "transfer"
	if err := validateRecipient(op, to); err != nil {
		return err
	}
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireOwner(tx, op, id, caller); err != nil {
			return err
		}
		return move(tx, id, caller, to)
	})
}

// Approve lets `to` claim the kitty once through TransferFrom. The zero address clears the approval.
func (s *Service) Approve(ctx context.Context, id domain.KittyID, to, caller domain.Address) error {
	const op = "approve"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireOwner(tx, op, id, caller); err != nil {
			return err
		}
		if err := tx.Approve(id, to); err != nil {
			return err
		}
		tx.Emit(domain.Event{Kind: domain.EventApproval, KittyID: id, Owner: caller, To: to})
		return nil
	})
}

// TransferFrom moves a kitty from its owner on behalf of an approved caller.
func (s *Service) TransferFrom(ctx context.Context, id domain.KittyID, from, to, caller domain.Address) error {
	const op = "transfer_from"
	if err := validateRecipient(op, to); err != nil {
		return err
	}
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireOwner(tx, op, id, from); err != nil {
			return err
		}
		if caller != from && (caller.IsZero() || tx.ApprovedFor(id) != caller) {
			return domain.Failf(domain.ErrNotOwnerOrApproved, op, "%q is not approved for kitty %d", caller, id)
		}
		return move(tx, id, from, to)
	})
}

// ApproveSiring allows addr to use the caller's kitty as a sire once.
func (s *Service) ApproveSiring(ctx context.Context, sireID domain.KittyID, addr, caller domain.Address) error {
	const op = "approve_siring"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireOwner(tx, op, sireID, caller); err != nil {
			return err
		}
		return tx.SetSiringApproval(sireID, addr)
	})
}

// RescueLostKitty returns a kitty that was sent to the core account by mistake. COO only.
func (s *Service) RescueLostKitty(ctx context.Context, id domain.KittyID, recipient, caller domain.Address) error {
	const op = "rescue_lost_kitty"
	if err := validateRecipient(op, recipient); err != nil {
		return err
	}
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCOO); err != nil {
			return err
		}
		if err := requireOwner(tx, op, id, domain.CoreAddress); err != nil {
			return err
		}
		return move(tx, id, domain.CoreAddress, recipient)
	})
}
