package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema 创建缺失的表和列（幂等，可重复执行）
// 已有部署升级时通过 ADD COLUMN IF NOT EXISTS 补齐 AIMS 对接列
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";
CREATE TABLE IF NOT EXISTS tenants (
  tenant_id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  tenant_name varchar(255) NOT NULL,
  domain varchar(255) UNIQUE,
  status varchar(50) DEFAULT 'active',
  aims_base_url varchar(512),
  aims_cluster varchar(50),
  aims_username varchar(255),
  aims_password_enc text,
  metadata jsonb
);
CREATE TABLE IF NOT EXISTS stores (
  store_id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  tenant_id uuid NOT NULL REFERENCES tenants(tenant_id) ON DELETE CASCADE,
  store_code varchar(100) NOT NULL,
  store_name varchar(255) NOT NULL,
  status varchar(50) DEFAULT 'active',
  UNIQUE (tenant_id, store_code)
);
CREATE TABLE IF NOT EXISTS spaces (
  space_id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  tenant_id uuid NOT NULL REFERENCES tenants(tenant_id) ON DELETE CASCADE,
  store_id uuid NOT NULL REFERENCES stores(store_id) ON DELETE CASCADE,
  space_code varchar(100) NOT NULL,
  space_name varchar(255) NOT NULL,
  space_type varchar(50) NOT NULL,
  capacity int NOT NULL DEFAULT 1,
  occupant_name varchar(255),
  label_code varchar(100),
  metadata jsonb,
  UNIQUE (store_id, space_code)
);
CREATE TABLE IF NOT EXISTS tenant_settings (
  tenant_id uuid NOT NULL REFERENCES tenants(tenant_id) ON DELETE CASCADE,
  setting_key varchar(100) NOT NULL,
  setting_value jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT NOW(),
  PRIMARY KEY (tenant_id, setting_key)
);
-- 升级路径：老库补齐 AIMS 对接列
ALTER TABLE tenants ADD COLUMN IF NOT EXISTS aims_base_url varchar(512);
ALTER TABLE tenants ADD COLUMN IF NOT EXISTS aims_cluster varchar(50);
ALTER TABLE tenants ADD COLUMN IF NOT EXISTS aims_username varchar(255);
ALTER TABLE tenants ADD COLUMN IF NOT EXISTS aims_password_enc text;
CREATE INDEX IF NOT EXISTS spaces_store_idx ON spaces(store_id);
`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
