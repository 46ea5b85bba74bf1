package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTransactionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_transactions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"CHECK (type IN ('recharge', 'purchase', 'refund', 'adjustment'))",
		"CHECK (payment_status IN ('pending', 'paid', 'cancelled'))",
		"CHECK ((student_id IS NULL) <> (teacher_profile_id IS NULL))",
		"FOREIGN KEY (refund_of_transaction_id) REFERENCES transactions(id) ON DELETE RESTRICT",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_refund_of",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_recharge_request",
		"DROP TABLE IF EXISTS transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLunchOrdersMigrationEnforcesOnePerDay(t *testing.T) {
	content := readMigration(t, "*_create_lunch_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS lunch_orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_lunch_orders_student_date",
		"WHERE student_id IS NOT NULL AND status <> 'cancelled'",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_lunch_orders_teacher_date",
		"WHERE teacher_profile_id IS NOT NULL AND status <> 'cancelled'",
		"CHECK (status IN ('pending_payment', 'confirmed', 'delivered', 'cancelled', 'postponed'))",
		"ADD CONSTRAINT fk_transactions_lunch_order",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_items.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CREATE TABLE IF NOT EXISTS inventory_stocks",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_inventory_stocks_item",
		"DROP TABLE IF EXISTS inventory_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
