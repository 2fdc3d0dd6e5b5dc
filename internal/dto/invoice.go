package dto

// UpdateDiscountRequest adjusts the discount on an unpaid invoice. The
// total is recomputed server-side.
type UpdateDiscountRequest struct {
	Discount int64 `json:"discount" validate:"min=0"`
}
