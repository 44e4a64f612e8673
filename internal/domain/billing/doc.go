// Package billing provides the vendor billing documents owed to sellers for sold stock.
//
// This package implements the vendor billing bounded context, which is responsible for:
//   - One billing document per (seller, order, shipment) natural key, named by BillingName
//   - Billing lines carrying the reconciled price breakdown and computed taxes
//   - The document lifecycle draft -> to approve -> billing -> done, with cancel
//
// Key Aggregates:
//   - VendorBilling: the document, its lines, totals and payment state
//
// Value Objects:
//   - BillingLine: one sku billed with its unit price, IVA, IEC and breakdown
//   - BillingState, PaymentState: persisted verbatim as their string values
//
// The billing domain integrates with:
//   - Trade domain: billings reference the related order number
//   - Inventory domain: billings reference the shipment the stock was drawn from
//   - Pricing domain: each line stores the breakdown that produced its unit price
package billing
