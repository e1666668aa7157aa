// Package aggregates implements the imaging write boundaries over gorm.
// Each write runs in one transaction owned by the aggregate; repos from
// internal/data/repos only ever see that transaction through dbctx.
package aggregates
