package db

import (
	"fmt"

	"gorm.io/gorm"
)

func enumStatement(name string, labels string) string {
	return fmt.Sprintf(`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = '%s') THEN
			CREATE TYPE %s AS ENUM (%s);
		END IF;
	END
	$$;`, name, name, labels)
}

func updatedAtTrigger(table string) string {
	return fmt.Sprintf(`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_%s_updated_at') THEN
			CREATE TRIGGER trg_%s_updated_at
				BEFORE UPDATE ON %s
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`, table, table, table)
}

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	enumStatement("user_role", `'administrator', 'supervisor', 'technician'`),
	enumStatement("service_type", `'Inspection', 'Installation', 'Maintenance'`),
	enumStatement("work_order_status", `'Unassigned', 'Assigned', 'In Progress', 'Under Review', 'Approved'`),
	enumStatement("task_status", `'Pending', 'In Progress', 'Completed', 'Approved', 'Rejected'`),
	enumStatement("evidence_type", `'Foto', 'Video', 'Texto', 'Audio', 'File'`),
	enumStatement("evidence_status", `'Pending', 'Completed', 'Approved', 'Rejected'`),
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) NOT NULL,
		name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		full_name VARCHAR(201) NOT NULL,
		phone VARCHAR(20),
		password_hash TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		role user_role NOT NULL,
		deletion_cause TEXT,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		confirmation_token TEXT,
		confirmation_expires_at TIMESTAMPTZ,
		login_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_users_email UNIQUE (email),
		CONSTRAINT uq_users_full_name UNIQUE (full_name)
	);`,
	`CREATE TABLE IF NOT EXISTS user_login_attempts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status VARCHAR(16) NOT NULL,
		cause TEXT,
		token TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_user_login_attempts_user_id ON user_login_attempts(user_id);`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) NOT NULL,
		company_name VARCHAR(100) NOT NULL,
		contact_person VARCHAR(100) NOT NULL,
		phone VARCHAR(20),
		address VARCHAR(255),
		geo_location JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_clients_email UNIQUE (email),
		CONSTRAINT uq_clients_company_name UNIQUE (company_name)
	);`,
	`CREATE TABLE IF NOT EXISTS task_templates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		service_type service_type NOT NULL,
		ordering INTEGER NOT NULL,
		description TEXT NOT NULL,
		suggested_evidence TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_task_templates_ordering UNIQUE (service_type, ordering)
	);`,
	`CREATE TABLE IF NOT EXISTS work_orders (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		work_order_number VARCHAR(16) NOT NULL,
		number_year INTEGER NOT NULL,
		number_sequence INTEGER NOT NULL,
		supervisor_id UUID NOT NULL REFERENCES users(id),
		client_id UUID NOT NULL REFERENCES clients(id),
		description TEXT NOT NULL,
		service_type service_type NOT NULL,
		status work_order_status NOT NULL DEFAULT 'Unassigned',
		scheduled_date TIMESTAMPTZ,
		estimated_duration DOUBLE PRECISION NOT NULL DEFAULT 1
			CHECK (estimated_duration >= 0.25 AND estimated_duration <= 8),
		assigned_technician_id UUID REFERENCES users(id),
		reason_rejection TEXT,
		address VARCHAR(255),
		contact_person VARCHAR(100),
		phone VARCHAR(20),
		client_email VARCHAR(255),
		location JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_work_orders_number UNIQUE (work_order_number),
		CONSTRAINT uq_work_orders_year_sequence UNIQUE (number_year, number_sequence)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_work_orders_supervisor_id ON work_orders(supervisor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_work_orders_client_id ON work_orders(client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_work_orders_technician_schedule ON work_orders(assigned_technician_id, scheduled_date);`,
	`CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);`,
	// work_order_id carries no foreign key: deleting a work order leaves its tasks in place.
	`CREATE TABLE IF NOT EXISTS work_order_tasks (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		work_order_id UUID NOT NULL,
		ordering INTEGER NOT NULL,
		description TEXT NOT NULL,
		technician_id UUID REFERENCES users(id),
		status task_status NOT NULL DEFAULT 'Pending',
		observation_by_reject TEXT,
		update_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_work_order_tasks_ordering UNIQUE (work_order_id, ordering)
	);`,
	`CREATE TABLE IF NOT EXISTS task_evidences (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		task_id UUID NOT NULL REFERENCES work_order_tasks(id),
		ordering INTEGER NOT NULL,
		type evidence_type NOT NULL,
		observations TEXT,
		url TEXT,
		date TIMESTAMPTZ NOT NULL,
		technician_id UUID NOT NULL REFERENCES users(id),
		supervisor_id UUID NOT NULL REFERENCES users(id),
		status evidence_status NOT NULL DEFAULT 'Pending',
		supervisor_observation TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_task_evidences_ordering UNIQUE (task_id, ordering),
		CONSTRAINT chk_task_evidences_rejection CHECK (
			status <> 'Rejected' OR COALESCE(supervisor_observation, '') <> ''
		)
	);`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		audit_log_user VARCHAR(255) NOT NULL,
		audit_log_action VARCHAR(16) NOT NULL,
		audit_log_model VARCHAR(64) NOT NULL,
		audit_log_document_id VARCHAR(64),
		audit_log_changes JSONB,
		audit_log_timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_model ON audit_logs(audit_log_model);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_user ON audit_logs(audit_log_user);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`CREATE OR REPLACE FUNCTION reject_audit_log_mutation()
	RETURNS TRIGGER AS $$
	BEGIN
		RAISE EXCEPTION 'audit log entries are immutable';
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_audit_logs_immutable') THEN
			CREATE TRIGGER trg_audit_logs_immutable
				BEFORE UPDATE OR DELETE ON audit_logs
				FOR EACH ROW
				EXECUTE PROCEDURE reject_audit_log_mutation();
		END IF;
	END
	$$;`,
	updatedAtTrigger("users"),
	updatedAtTrigger("clients"),
	updatedAtTrigger("task_templates"),
	updatedAtTrigger("work_orders"),
	updatedAtTrigger("work_order_tasks"),
	updatedAtTrigger("task_evidences"),
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
