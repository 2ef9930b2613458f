// Package models defines the core domain models for SettleUp.
//
// # Models
//
//   - User: a registered account, identified by email
//   - Friend: a directed edge from a user to someone in their friend list
//   - Group: a named set of members who share expenses
//   - Expense: something one user paid for, divided into ExpenseSplits
//   - Settlement: a payment from a debtor to a creditor
//   - Activity: an append-only record of what happened, for feeds
//
// # Design Principles
//
//  1. Relationships are ID strings, not pointers
//  2. Money is decimal.Decimal at cent precision, never float64
//  3. Timestamps are Unix seconds
//  4. Balances are never stored; they are derived from expenses and
//     settlements by the calculator package
package models
