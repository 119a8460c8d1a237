package model

// All entities migrated at startup, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Prediction{},
		&DrawResult{},
		&Purchase{},
		&Wallet{},
		&WalletTransaction{},
		&TrialGrant{},
		&OutboxMessage{},
	}
}
