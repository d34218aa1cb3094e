// Package repository 数据访问层：每个聚合一个接口 + Postgres/Memory 两种实现
// Postgres 实现使用手写SQL（database/sql + lib/pq），Memory 实现用于 DB_ENABLED=false 的本地开发
package repository

// rowScanner 统一 *sql.Row / *sql.Rows 的 Scan 签名，供共享的扫描函数使用
type rowScanner interface {
	Scan(dest ...any) error
}
