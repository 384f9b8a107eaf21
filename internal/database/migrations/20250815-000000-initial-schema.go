package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250815-000000",
		Description: "Initial schema",
		Up: []string{
			// Users - identity plus a cached token balance.
			// token_balance mirrors the latest token_transactions.balance_after.
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				token_balance INTEGER NOT NULL DEFAULT 0,
				has_purchased INTEGER NOT NULL DEFAULT 0,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,

			// Token transactions - append-only ledger, never updated or
			// deleted. The partial unique index is what makes credits
			// idempotent per reference id.
			`CREATE TABLE IF NOT EXISTS token_transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				type TEXT NOT NULL,
				amount INTEGER NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				reference_id TEXT,
				balance_after INTEGER NOT NULL,
				metadata TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_token_transactions_user_id ON token_transactions(user_id, created_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_token_transactions_reference
				ON token_transactions(user_id, reference_id) WHERE reference_id IS NOT NULL`,

			// Payments - one row per provider payment intent
			`CREATE TABLE IF NOT EXISTS payments (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				payment_intent_id TEXT UNIQUE NOT NULL,
				session_id TEXT,
				package_id TEXT NOT NULL,
				amount_usd REAL NOT NULL,
				tokens_granted INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				failure_reason TEXT,
				metadata TEXT,
				created_at TEXT NOT NULL,
				completed_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_session_id ON payments(session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,

			// Optimizations - ephemeral audit rows, aged out by the cleanup
			// service. Owned by a browser fingerprint, not a user id.
			`CREATE TABLE IF NOT EXISTS optimizations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				original_prompt TEXT NOT NULL,
				context TEXT,
				optimized_prompt TEXT NOT NULL,
				score INTEGER NOT NULL DEFAULT 0,
				fingerprint TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_optimizations_fingerprint ON optimizations(fingerprint, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_optimizations_created_at ON optimizations(created_at)`,

			// Personas - saved rows are exempt from retention deletion
			`CREATE TABLE IF NOT EXISTS personas (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				original_input TEXT NOT NULL,
				generated_persona TEXT NOT NULL,
				enhancement_answers TEXT,
				fingerprint TEXT NOT NULL,
				phase TEXT NOT NULL DEFAULT '1',
				saved INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_personas_fingerprint ON personas(fingerprint, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_personas_saved ON personas(saved, created_at)`,

			// Usage logs - billing audit trail, longer retention window
			`CREATE TABLE IF NOT EXISTS usage_logs (
				id TEXT PRIMARY KEY,
				user_id TEXT,
				fingerprint TEXT,
				request_type TEXT NOT NULL,
				input_chars INTEGER NOT NULL DEFAULT 0,
				output_chars INTEGER NOT NULL DEFAULT 0,
				estimated_cost_usd REAL NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_usage_logs_user_id ON usage_logs(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_usage_logs_created_at ON usage_logs(created_at)`,
		},
	})
}
