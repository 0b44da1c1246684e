package stock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateQuantity(t *testing.T) {
	err := Validate(MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 0, DestLocationID: 2})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = Validate(MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: -5, DestLocationID: 2})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = Validate(MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 2})
	require.NoError(t, err)
}

func TestValidateLocationCombinations(t *testing.T) {
	cases := []struct {
		name  string
		input MovementInput
		want  error
	}{
		{"receipt without destination", MovementInput{Type: MovementTypeReceipt, Quantity: 1}, ErrInvalidLocationCombination},
		{"receipt with source", MovementInput{Type: MovementTypeReceipt, Quantity: 1, SourceLocationID: 1, DestLocationID: 2}, ErrInvalidLocationCombination},
		{"shipment without source", MovementInput{Type: MovementTypeShipment, Quantity: 1}, ErrInvalidLocationCombination},
		{"shipment with destination", MovementInput{Type: MovementTypeShipment, Quantity: 1, SourceLocationID: 1, DestLocationID: 2}, ErrInvalidLocationCombination},
		{"transfer missing destination", MovementInput{Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 1}, ErrInvalidLocationCombination},
		{"transfer missing source", MovementInput{Type: MovementTypeTransfer, Quantity: 1, DestLocationID: 2}, ErrInvalidLocationCombination},
		{"transfer onto itself", MovementInput{Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 3, DestLocationID: 3}, ErrSameSourceAndDestination},
		{"unknown type", MovementInput{Type: "ADJUST", Quantity: 1, DestLocationID: 2}, ErrUnknownMovementType},
		{"valid receipt", MovementInput{Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 2}, nil},
		{"valid shipment", MovementInput{Type: MovementTypeShipment, Quantity: 1, SourceLocationID: 1}, nil},
		{"valid transfer", MovementInput{Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 1, DestLocationID: 2}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.input)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestBalanceKeysAreSorted(t *testing.T) {
	in := MovementInput{Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 9, DestLocationID: 2}
	require.Equal(t, []int64{2, 9}, in.balanceKeys())

	in = MovementInput{Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 2, DestLocationID: 9}
	require.Equal(t, []int64{2, 9}, in.balanceKeys())

	in = MovementInput{Type: MovementTypeShipment, Quantity: 1, SourceLocationID: 4}
	require.Equal(t, []int64{4}, in.balanceKeys())
}
