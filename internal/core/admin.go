package core

import (
	"context"

	"kittycore/pkg/domain"
)

// Bootstrap assigns the operator roles and the initial auto-birth fee on a
// ledger that has never been initialised.
func (s *Service) Bootstrap(ctx context.Context, roles domain.Roles, autoBirthFee domain.Amount) error {
	const op = "bootstrap"
	if roles.CEO.IsZero() {
		return domain.Failf(domain.ErrInvalidArgument, op, "a CEO address is required")
	}
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if tx.System().Roles.Initialized() {
			return domain.Failf(domain.ErrAlreadyInitialized, op, "roles already assigned")
		}
		_, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Roles = roles
			st.Params.AutoBirthFee = autoBirthFee
			return nil
		})
		return err
	})
}

// SetRole reassigns role to addr. Only the CEO may call it.
func (s *Service) SetRole(ctx context.Context, role domain.Role, addr, caller domain.Address) error {
	const op = "set_role"
	if addr.IsZero() {
		return domain.Failf(domain.ErrInvalidArgument, op, "role %s cannot be assigned to the zero address", role)
	}
	if domain.IsEscrowAddress(addr) || addr == domain.CoreAddress {
		return domain.Failf(domain.ErrInvalidArgument, op, "role %s cannot be assigned to system account %s", role, addr)
	}
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCEO); err != nil {
			return err
		}
		_, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			switch role {
			case domain.RoleCEO:
				st.Roles.CEO = addr
			case domain.RoleCFO:
				st.Roles.CFO = addr
			case domain.RoleCOO:
				st.Roles.COO = addr
			default:
				return domain.Failf(domain.ErrInvalidArgument, op, "unknown role %q", role)
			}
			return nil
		})
		if err != nil {
			return err
		}
		tx.Emit(domain.Event{Kind: domain.EventRoleChanged, Role: role, To: addr, From: caller})
		return nil
	})
}

// Pause halts lifecycle, transfer and auction entry points. Any operator may pause.
func (s *Service) Pause(ctx context.Context, caller domain.Address) error {
	const op = "pause"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireCLevel(tx, op, caller); err != nil {
			return err
		}
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if _, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Paused = true
			return nil
		}); err != nil {
			return err
		}
		tx.Emit(domain.Event{Kind: domain.EventPause, From: caller})
		return nil
	})
}

// Unpause resumes normal operation. Only the CEO may unpause.
func (s *Service) Unpause(ctx context.Context, caller domain.Address) error {
	const op = "unpause"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCEO); err != nil {
			return err
		}
		if !tx.System().Paused {
			return domain.Failf(domain.ErrNotPaused, op, "system is not paused")
		}
		if _, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Paused = false
			return nil
		}); err != nil {
			return err
		}
		tx.Emit(domain.Event{Kind: domain.EventUnpause, From: caller})
		return nil
	})
}

// SetAutoBirthFee updates the fee charged on the auto-birth breeding path. COO only.
func (s *Service) SetAutoBirthFee(ctx context.Context, fee domain.Amount, caller domain.Address) error {
	const op = "set_auto_birth_fee"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCOO); err != nil {
			return err
		}
		_, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Params.AutoBirthFee = fee
			return nil
		})
		return err
	})
}
