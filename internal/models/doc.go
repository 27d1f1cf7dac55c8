// Package models defines the core domain models for debtwiser.
//
// # Models
//
//   - User: a registered account that owns debts
//   - Debt: a single amount owed by a user, PENDING until paid
//   - Summary: per-user totals and counts partitioned by status
//
// # Design Principles
//
//  1. **Explicit ownership**: a Debt stores its owner's UserID instead of a pointer to the User
//  2. **Fixed precision**: money is an Amount of integer cents, never a float
//  3. **One-way lifecycle**: PENDING -> PAID is the only status transition
//  4. **Cache friendly**: every model round-trips through encoding/json unchanged, since cached
//     copies are served verbatim
package models
