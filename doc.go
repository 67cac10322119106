// Package till provides a point-of-sale ledger for pop-up retail events.
//
// Till is designed as a library, not a service. Import it into the program
// that drives the register. It provides:
//
//   - Per-event product catalogs with stock levels
//   - Atomic checkout: a sale is never stored without its stock decrement
//   - Cancellation that keeps history and drops the sale from every total
//   - Live summaries per event and per product
//   - Pluggable lifecycle hooks for audit trails, metrics and tracing
//
// # Quick Start
//
// Create a till over your preferred store:
//
//	import (
//	    "github.com/xraph/till"
//	    "github.com/xraph/till/store/sqlite"
//	)
//
//	t := till.New(sqlite.New(db))
//
//	// Start migrates the store and initializes plugins.
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Events group a catalog under a name and calendar day:
//
//	eventID, err := t.CreateEvent(ctx, "Spring Fair", "2024-05-01")
//	stickerID, err := t.AddProduct(ctx, eventID, "Sticker", 300, 10)
//
// A cart stages lines against the stock the register last saw, then
// commits each line through the till:
//
//	session := cart.NewSession()
//	session.SwitchEvent(eventID)
//	err = session.Cart.AddLine(stickerID, "Sticker", 300, 10, 2)
//	saleIDs, err := session.Checkout(ctx, t)
//
// Summaries are recomputed on every call; refresh after each mutation:
//
//	snap, err := summary.NewEngine(t).Refresh(ctx, eventID)
//	fmt.Println(t.FormatMoney(snap.Totals.Revenue)) // ¥600
//
// # Cancellation
//
// CancelSale flags a sale and removes it from totals. Stock is not
// restored unless the till is built with WithRestockOnCancel(true); the
// restore then happens in the same storage transaction as the flag.
//
// # Money and Time
//
// Amounts are types.Money, an integer count of the smallest currency unit.
// There is no floating point anywhere in the ledger. Sale timestamps come
// from the till's clock and are reported in one civil zone fixed at
// construction (Asia/Tokyo by default).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41   // Event ID
//	prod_01h2xcejqtf2nbrexx3vqjhp41  // Product ID
//	sale_01h455vb4pex5vsknk084sn02q  // Sale ID
package till
