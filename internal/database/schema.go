package database

// Each service owns its tables; a binary only migrates its own.

const AccountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	surname       TEXT NOT NULL,
	address       TEXT NOT NULL,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'USER',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const ProductsSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price    NUMERIC(12, 2) NOT NULL,
	color    TEXT NOT NULL DEFAULT ''
)`

const CartLinesSchema = `
CREATE TABLE IF NOT EXISTS cart_lines (
	account_id BIGINT NOT NULL,
	product_id BIGINT NOT NULL,
	name       TEXT NOT NULL,
	unit_price NUMERIC(12, 2) NOT NULL,
	quantity   INT NOT NULL CHECK (quantity >= 1),
	added_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (account_id, product_id)
)`

const OrdersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id              BIGSERIAL PRIMARY KEY,
	account_id      BIGINT NOT NULL,
	addressee       TEXT NOT NULL,
	address         TEXT NOT NULL,
	total_cost      NUMERIC(12, 2) NOT NULL,
	placed_at       TIMESTAMPTZ NOT NULL,
	idempotency_key TEXT UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const OrdersAccountIndex = `CREATE INDEX IF NOT EXISTS orders_account_id_idx ON orders (account_id)`
