package service

import (
	"context"
	"fmt"

	"github.com/sbvm/voucher-portal/internal/model"
)

// VoucherRepositoryInterface defines the voucher data access for ingest and lookup.
type VoucherRepositoryInterface interface {
	Insert(ctx context.Context, voucher *model.Voucher) error
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
}

// VoucherService handles voucher ingest from the external generator and
// status lookups. Codes arrive pre-generated and opaque; the only policy
// here is uniqueness, which the store enforces.
type VoucherService struct {
	repo VoucherRepositoryInterface
}

// NewVoucherService creates a VoucherService with the given repository.
func NewVoucherService(repo VoucherRepositoryInterface) *VoucherService {
	return &VoucherService{repo: repo}
}

// Create stores a new voucher in UNUSED state.
// Returns ErrVoucherExists if the code was already issued.
// Returns ErrInvalidRequest if request data is nil.
func (s *VoucherService) Create(ctx context.Context, req *model.CreateVoucherRequest) error {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil {
		return ErrInvalidRequest
	}

	voucher := &model.Voucher{
		Code:   req.Code,
		Status: model.StatusUnused,
	}
	return s.repo.Insert(ctx, voucher)
}

// GetByCode returns the status projection for a voucher. Clients use this to
// re-verify state after a redemption timed out instead of blindly retrying.
// Returns ErrVoucherNotFound if the code doesn't exist.
func (s *VoucherService) GetByCode(ctx context.Context, code string) (*model.VoucherResponse, error) {
	voucher, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}

	return &model.VoucherResponse{
		Code:            voucher.Code,
		Status:          voucher.Status,
		RedemptionCount: voucher.RedemptionCount,
		LastRedeemedAt:  voucher.LastRedeemedAt,
	}, nil
}
