// Package notifier delivers short alerts to the administrator: new
// registrations, prayer requests and broadcasts with failed deliveries.
//
// Alerts go through a queue drained by one worker that rate limits,
// retries with backoff and suppresses duplicates inside a window. A full
// queue drops the alert; alerts are never allowed to slow down members.
//
// The service keeps a small in-memory history of delivered alerts.
package notifier
