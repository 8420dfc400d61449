package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kittycore/pkg/domain"
)

// siringPermitted reports whether the matron owner may use the sire: either
// they own both or the sire owner granted them a siring approval.
func siringPermitted(tx domain.Transaction, matronOwner domain.Address, sireID domain.KittyID) bool {
	sireOwner, ok := tx.OwnerOf(sireID)
	if !ok {
		return false
	}
	return sireOwner == matronOwner || tx.SiringApproval(sireID) == matronOwner
}

// prepareBreeding runs every authorisation and eligibility check shared by
// BreedWith and BreedWithAuto.
func (s *Service) prepareBreeding(tx domain.Transaction, op string, matronID, sireID domain.KittyID, caller domain.Address) (domain.Kitty, domain.Kitty, error) {
	if err := requireNotPaused(tx, op); err != nil {
		return domain.Kitty{}, domain.Kitty{}, err
	}
	matron, err := loadKitty(tx, matronID)
	if err != nil {
		return domain.Kitty{}, domain.Kitty{}, err
	}
	sire, err := loadKitty(tx, sireID)
	if err != nil {
		return domain.Kitty{}, domain.Kitty{}, err
	}
	for _, id := range []domain.KittyID{matronID, sireID} {
		if escrowedKitty(tx, id) {
			return domain.Kitty{}, domain.Kitty{}, domain.Failf(domain.ErrNotEligible, op, "kitty %d is held by an auction", id)
		}
	}
	if err := requireOwner(tx, op, matronID, caller); err != nil {
		return domain.Kitty{}, domain.Kitty{}, err
	}
	if !siringPermitted(tx, caller, sireID) {
		return domain.Kitty{}, domain.Kitty{}, domain.Failf(domain.ErrNotOwnerOrApproved, op, "%q may not use kitty %d as a sire", caller, sireID)
	}
	if err := checkMatingPair(tx, op, matron, sire, tx.Now().Unix()); err != nil {
		return domain.Kitty{}, domain.Kitty{}, err
	}
	return matron, sire, nil
}

// mate starts a pregnancy: both parents enter their cooldown, the matron
// records the sire and siring approvals on both are consumed.
func (s *Service) mate(tx domain.Transaction, matron, sire domain.Kitty) (domain.Kitty, error) {
	now := tx.Now().Unix()
	if _, err := tx.UpdateKitty(sire.ID, func(k *domain.Kitty) error {
		k.NextActionAt = now + s.cfg.Cooldowns.Seconds(k.CooldownIndex)
		k.CooldownIndex = nextCooldownIndex(k.CooldownIndex)
		return nil
	}); err != nil {
		return domain.Kitty{}, err
	}
	updated, err := tx.UpdateKitty(matron.ID, func(k *domain.Kitty) error {
		k.SiringWithID = sire.ID
		k.NextActionAt = now + s.cfg.Cooldowns.Seconds(k.CooldownIndex)
		k.CooldownIndex = nextCooldownIndex(k.CooldownIndex)
		return nil
	})
	if err != nil {
		return domain.Kitty{}, err
	}
	tx.ClearSiringApproval(matron.ID)
	tx.ClearSiringApproval(sire.ID)
	owner, _ := tx.OwnerOf(matron.ID)
	tx.Emit(domain.Event{
		Kind:            domain.EventPregnant,
		Owner:           owner,
		MatronID:        matron.ID,
		SireID:          sire.ID,
		CooldownEndTime: updated.NextActionAt,
	})
	return updated, nil
}

// holdAutoBirthFee escrows fee for whoever later calls GiveBirth on matron.
func holdAutoBirthFee(tx domain.Transaction, matron domain.Kitty, fee domain.Amount) error {
	if err := tx.Credit(domain.CoreAddress, fee); err != nil {
		return err
	}
	if err := tx.HoldAutoBirthEscrow(matron.ID, fee); err != nil {
		return err
	}
	tx.Emit(domain.Event{
		Kind:            domain.EventAutoBirth,
		MatronID:        matron.ID,
		SireID:          matron.SiringWithID,
		CooldownEndTime: matron.NextActionAt,
		Fee:             fee,
	})
	return nil
}

// BreedWith makes matronID pregnant by sireID. The caller must own the matron
// and either own the sire or hold a siring approval for it.
func (s *Service) BreedWith(ctx context.Context, matronID, sireID domain.KittyID, caller domain.Address) (domain.Kitty, error) {
	const op = "breed_with"
	var pregnant domain.Kitty
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		matron, sire, err := s.prepareBreeding(tx, op, matronID, sireID, caller)
		if err != nil {
			return err
		}
		pregnant, err = s.mate(tx, matron, sire)
		return err
	})
	return pregnant, err
}

// BreedWithAuto behaves like BreedWith and additionally escrows the auto-birth
// fee so a keeper can deliver the child. Any excess over the fee is credited
// back to the caller.
func (s *Service) BreedWithAuto(ctx context.Context, matronID, sireID domain.KittyID, paid domain.Amount, caller domain.Address) (domain.Kitty, error) {
	const op = "breed_with_auto"
	var pregnant domain.Kitty
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		fee := tx.System().Params.AutoBirthFee
		if paid < fee {
			return domain.Failf(domain.ErrInsufficientValue, op, "paid %d, auto-birth fee is %d", paid, fee)
		}
		matron, sire, err := s.prepareBreeding(tx, op, matronID, sireID, caller)
		if err != nil {
			return err
		}
		if pregnant, err = s.mate(tx, matron, sire); err != nil {
			return err
		}
		if err := holdAutoBirthFee(tx, pregnant, fee); err != nil {
			return err
		}
		return tx.Credit(caller, paid-fee)
	})
	return pregnant, err
}

// GiveBirth delivers the child of a matron whose gestation has ended. Anyone
// may call it; the child belongs to the matron's owner and an escrowed
// auto-birth fee is paid to the caller.
func (s *Service) GiveBirth(ctx context.Context, matronID domain.KittyID, caller domain.Address) (domain.Kitty, error) {
	const op = "give_birth"
	var child domain.Kitty
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		matron, err := loadKitty(tx, matronID)
		if err != nil {
			return err
		}
		now := tx.Now().Unix()
		if !matron.IsGestating() {
			return domain.Failf(domain.ErrNotReady, op, "kitty %d is not pregnant", matronID)
		}
		if now < matron.NextActionAt {
			return domain.Failf(domain.ErrNotReady, op, "kitty %d is due at %d", matronID, matron.NextActionAt)
		}
		sire, ok := tx.FindKitty(matron.SiringWithID)
		if !ok {
			return domain.Failf(domain.ErrInvariantViolation, op, "kitty %d is pregnant by missing sire %d", matronID, matron.SiringWithID)
		}
		owner, ok := tx.OwnerOf(matronID)
		if !ok {
			return domain.Failf(domain.ErrInvariantViolation, op, "kitty %d has no owner", matronID)
		}

		seed := s.entropy.Seed(matron, sire, now)
		genes, err := s.genes.MixGenes(ctx, matron.Genes, sire.Genes, seed)
		if err != nil {
			return fmt.Errorf("%s: mix genes: %w", op, err)
		}

		generation := matron.Generation
		if sire.Generation > generation {
			generation = sire.Generation
		}
		child, err = tx.CreateKitty(domain.Kitty{
			Genes:      genes,
			BirthTime:  now,
			MatronID:   matron.ID,
			SireID:     sire.ID,
			Generation: generation + 1,
		})
		if err != nil {
			return err
		}
		if err := move(tx, child.ID, "", owner); err != nil {
			return err
		}
		if _, err := tx.UpdateKitty(matronID, func(k *domain.Kitty) error {
			k.SiringWithID = 0
			return nil
		}); err != nil {
			return err
		}
		tx.Emit(domain.Event{
			Kind:     domain.EventBirth,
			Owner:    owner,
			KittyID:  child.ID,
			MatronID: matron.ID,
			SireID:   sire.ID,
			Genes:    &genes,
		})

		if fee := tx.ReleaseAutoBirthEscrow(matronID); fee > 0 {
			if caller.IsZero() {
				return domain.Failf(domain.ErrInvalidArgument, op, "a keeper address is required to collect the auto-birth fee")
			}
			if err := tx.Debit(domain.CoreAddress, fee); err != nil {
				return err
			}
			if err := tx.Credit(caller, fee); err != nil {
				return err
			}
			tx.Emit(domain.Event{
				Kind:     domain.EventAutoBirth,
				MatronID: matron.ID,
				SireID:   sire.ID,
				KittyID:  child.ID,
				Keeper:   caller,
				Fee:      fee,
				Settled:  true,
			})
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("kitty born",
			zap.Uint64("kitty_id", uint64(child.ID)),
			zap.Uint64("matron_id", uint64(matronID)),
			zap.Uint32("generation", child.Generation),
		)
	}
	return child, err
}
