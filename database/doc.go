// Package database provides connection management for MySQL, PostgreSQL and
// SQLite, configuration loading, query hooks, table bootstrap for registered
// models, driver error classification and the logger used across the module.
package database
