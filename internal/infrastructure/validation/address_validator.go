package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

// AddressValidator implements integration.AddressValidator with struct-tag
// rules on the shipping address and records the outcome on the order.
type AddressValidator struct {
	validate *validator.Validate
	orders   integration.MarketplaceOrderRepository
	logger   *zap.Logger
}

// NewAddressValidator creates a new AddressValidator
func NewAddressValidator(orders integration.MarketplaceOrderRepository, logger *zap.Logger) *AddressValidator {
	return &AddressValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		orders:   orders,
		logger:   logger.Named("address_validator"),
	}
}

// Check returns the validation status of addr without persisting it
func (v *AddressValidator) Check(ctx context.Context, addr integration.ShippingAddress) (integration.AddressStatus, []string, error) {
	err := v.validate.StructCtx(ctx, addr)
	if err == nil {
		return integration.AddressStatusValid, nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "", nil, err
	}
	failed := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		failed = append(failed, fe.Field()+":"+fe.Tag())
	}
	return integration.AddressStatusInvalid, failed, nil
}

// ValidateAddress checks the order's shipping address and stores the result
func (v *AddressValidator) ValidateAddress(ctx context.Context, order *integration.MarketplaceOrder) error {
	status, failed, err := v.Check(ctx, order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to validate address: %w", err)
	}
	if status == integration.AddressStatusInvalid {
		v.logger.Info("Shipping address failed validation",
			zap.String("external_order_id", order.ExternalOrderID),
			zap.Strings("failed_rules", failed),
		)
	}
	if err := v.orders.UpdateAddressStatus(ctx, order.ID, status); err != nil {
		return fmt.Errorf("failed to store address status: %w", err)
	}
	order.AddressStatus = status
	return nil
}

// Ensure AddressValidator implements integration.AddressValidator
var _ integration.AddressValidator = (*AddressValidator)(nil)
