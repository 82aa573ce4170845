/*
Package wallet implements the prepaid wallet account and its ledger.

The wallet keeps a cached balance that always equals the signed sum of the
non-deleted ledger entries for that wallet. Every deposit and withdrawal
appends an immutable LedgerEntry carrying the post-entry balance snapshot
(LedgerAmount) and updates the cached balance inside one database
transaction, with the wallet row locked for the duration. Two concurrent
withdrawals that would jointly overdraw therefore serialize: exactly one
observes the updated balance and fails the spend check.

A withdrawal is allowed while amount <= balance + credit limit, so balances
may go negative down to the credit limit.

Usage:

	svc := wallet.NewService(repo, cache, metrics)

	w, err := svc.GetOrCreateWallet(ctx, userID, "USD")

	entry, err := svc.Deposit(ctx, w.ID, amount, wallet.SourceApp,
	    wallet.ReasonRecharge, "Paid using stripe. Txn Id: ...")

	entry, err = svc.Withdraw(ctx, w.ID, amount, wallet.SourceOnlineStore,
	    wallet.ReasonOrderPayment, "Transaction ID: ...")

Withdraw returns ErrInsufficientBalance when the spend check fails; the
enclosing transaction rolls back and neither the entry nor the balance
update is persisted.

The redis cache holds wallet snapshots for display reads only. Spend
decisions always re-read the wallet row from PostgreSQL under a FOR UPDATE
lock.
*/
package wallet
