package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// WarrantyUseCase emite, edita y elimina garantías consumiendo stock del distribuidor.
type WarrantyUseCase struct {
	warranties repository.WarrantyRepository
	allocation *AllocationUseCase
	commit     *CommitUseCase
	reversal   *ReversalUseCase
	deps       Deps
}

// NewWarrantyUseCase construye el caso de uso.
func NewWarrantyUseCase(
	warranties repository.WarrantyRepository,
	allocation *AllocationUseCase,
	commit *CommitUseCase,
	reversal *ReversalUseCase,
	deps Deps,
) *WarrantyUseCase {
	return &WarrantyUseCase{
		warranties: warranties,
		allocation: allocation,
		commit:     commit,
		reversal:   reversal,
		deps:       deps.withDefaults(),
	}
}

// IssueWarrantyInput entrada para emitir una garantía.
type IssueWarrantyInput struct {
	DealerID          string
	ProductID         string
	Area              decimal.Decimal
	CustomerReference string
	UserID            string
}

// Issue planifica, valida y descuenta los materiales del distribuidor y persiste la garantía
// con su registro de asignación, todo en una transacción.
func (uc *WarrantyUseCase) Issue(ctx context.Context, in IssueWarrantyInput) (*entity.Warranty, error) {
	if in.DealerID == "" || in.ProductID == "" || in.UserID == "" || !in.Area.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	scope := entity.DealerScope(in.DealerID)
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	now := uc.deps.Now()
	w := &entity.Warranty{
		ID:                uuid.New().String(),
		DealerID:          in.DealerID,
		ProductID:         in.ProductID,
		Area:              in.Area,
		CustomerReference: in.CustomerReference,
		IssuedBy:          in.UserID,
		IssuedAt:          now,
		UpdatedAt:         now,
	}
	ref := Reference{Type: entity.ReferenceWarranty, ID: w.ID, UserID: in.UserID}

	var movements []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		plan, err := uc.allocation.PlanInTx(ctx, repos, PlanInput{ProductID: in.ProductID, Area: in.Area, Scope: scope})
		if err != nil {
			return err
		}
		record, movs, err := uc.commit.CommitInTx(ctx, repos, plan, ref)
		if err != nil {
			return err
		}
		w.MaterialUsage = record
		movements = movs
		return repos.Warranties.Create(ctx, w)
	})
	if err != nil {
		uc.commit.reportFailure(scope, ref, err)
		return nil, err
	}
	uc.commit.Committed(ctx, scope, ref, movements)
	return w, nil
}

// UpdateArea revierte el consumo anterior, replanifica con la nueva área y reemplaza el registro.
// Si el nuevo plan no alcanza, nada cambia.
func (uc *WarrantyUseCase) UpdateArea(ctx context.Context, id string, area decimal.Decimal, userID string) (*entity.Warranty, error) {
	if id == "" || userID == "" || !area.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	current, err := uc.warranties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	scope := entity.DealerScope(current.DealerID)
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	ref := Reference{Type: entity.ReferenceWarranty, ID: id, UserID: userID}
	var (
		updated  *entity.Warranty
		restored []*entity.StockMovement
		deducted []*entity.StockMovement
	)
	err = uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		w, err := repos.Warranties.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return domain.ErrNotFound
		}
		restored, err = uc.reversal.ReverseInTx(ctx, repos, w.MaterialUsage, ref)
		if err != nil {
			return err
		}
		plan, err := uc.allocation.PlanInTx(ctx, repos, PlanInput{ProductID: w.ProductID, Area: area, Scope: scope})
		if err != nil {
			return err
		}
		record, movs, err := uc.commit.CommitInTx(ctx, repos, plan, ref)
		if err != nil {
			return err
		}
		deducted = movs
		w.Area = area
		w.MaterialUsage = record
		w.UpdatedAt = uc.deps.Now()
		if err := repos.Warranties.Update(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		uc.commit.reportFailure(scope, ref, err)
		return nil, err
	}
	uc.reversal.Reversed(ctx, scope, ref, restored)
	uc.commit.Committed(ctx, scope, ref, deducted)
	return updated, nil
}

// Delete revierte el consumo de la garantía y la elimina en la misma transacción.
func (uc *WarrantyUseCase) Delete(ctx context.Context, id, userID string) error {
	current, err := uc.warranties.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	scope := entity.DealerScope(current.DealerID)
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	ref := Reference{Type: entity.ReferenceWarranty, ID: id, UserID: userID}
	var restored []*entity.StockMovement
	err = uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		w, err := repos.Warranties.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return domain.ErrNotFound
		}
		restored, err = uc.reversal.ReverseInTx(ctx, repos, w.MaterialUsage, ref)
		if err != nil {
			return err
		}
		if err := repos.Warranties.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete warranty: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.deps.Log.Error().Err(err).Str("warranty_id", id).Msg("eliminación de garantía revertida")
		return err
	}
	uc.reversal.Reversed(ctx, scope, ref, restored)
	return nil
}

// Get obtiene una garantía con su registro de asignación.
func (uc *WarrantyUseCase) Get(ctx context.Context, id string) (*entity.Warranty, error) {
	w, err := uc.warranties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	return w, nil
}
