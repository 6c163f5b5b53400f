package models

// All lists every persisted model in dependency order. The sqlite driver
// builds its schema from these; postgres uses the goose migrations.
func All() []any {
	return []any{
		&Sweet{},
		&SweetSize{},
		&SweetTag{},
		&Offer{},
		&OfferProduct{},
		&AdminUser{},
	}
}
