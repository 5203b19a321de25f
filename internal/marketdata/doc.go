// Package marketdata fetches benchmark daily returns from a remote quote
// service. The HTTP provider downloads adjusted daily closes for the
// configured benchmark symbol and converts them to simple returns; the
// cached provider memoizes fetches with a TTL so repeated dashboard loads
// do not hammer the upstream service.
package marketdata
