package core

// Patch keys accepted by bulk propagation. Anything outside this
// allow-list is dropped before the patch reaches storage.
const (
	FieldPaymentMethod    = "payment_method"
	FieldChargeAccount    = "charge_account_id"
	FieldCounterpartyBank = "counterparty_bank"
	FieldCounterpartyTax  = "counterparty_tax_id"
)

var propagableFields = map[string]struct{}{
	FieldPaymentMethod:    {},
	FieldChargeAccount:    {},
	FieldCounterpartyBank: {},
	FieldCounterpartyTax:  {},
}

// FilterPropagable returns a copy of patch restricted to the
// allow-listed propagable fields.
func FilterPropagable(patch map[string]string) map[string]string {
	out := make(map[string]string, len(patch))
	for k, v := range patch {
		if _, ok := propagableFields[k]; ok {
			out[k] = v
		}
	}
	return out
}
