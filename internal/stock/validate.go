package stock

// Validate checks the structural legality of a proposed movement. It is pure:
// no I/O, no knowledge of current balances. Sufficiency against live balances
// is checked later by the executor under the balance locks.
func Validate(in MovementInput) error {
	if in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	switch in.Type {
	case MovementTypeReceipt:
		if in.DestLocationID == 0 || in.SourceLocationID != 0 {
			return ErrInvalidLocationCombination
		}
	case MovementTypeShipment:
		if in.SourceLocationID == 0 || in.DestLocationID != 0 {
			return ErrInvalidLocationCombination
		}
	case MovementTypeTransfer:
		if in.SourceLocationID == 0 || in.DestLocationID == 0 {
			return ErrInvalidLocationCombination
		}
		if in.SourceLocationID == in.DestLocationID {
			return ErrSameSourceAndDestination
		}
	default:
		return ErrUnknownMovementType
	}
	return nil
}
