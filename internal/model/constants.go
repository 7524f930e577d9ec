package model

import "time"

const DefaultTimeout = 500 * time.Millisecond
const DefaultWorkerCountMultiplier = 8
const DefaultChannelCapacity = 64
const ExpiryTickTimeout = time.Hour

// AdminFee is the flat processing fee deducted once per cancellation.
const AdminFee = 200 // pence

// CreditLifetime is how long a wallet credit stays redeemable.
const CreditLifetime = 365 * 24 * time.Hour

// CancellationWindow separates cash-refundable cancellations from
// credit-only ones.
const CancellationWindow = 24 * time.Hour

const HeaderContentType = "Content-Type"

type ContextKey string

const KeyContextLogger ContextKey = "logger"
const KeyContextParentID ContextKey = "parent_id"

const KeyLoggerError = "error"
