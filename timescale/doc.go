// Package timescale converts between three time-scales: TAI, a continuous
// count of atomic seconds; UTC, which inserts or removes leap seconds at the
// end of chosen days; and civil time, which smooths each leap second over
// the last 1000 seconds of its day (UTC-SLS) so that every day has exactly
// 86400 seconds, as time.Time assumes.
//
// Leap seconds are kept in a Registry. Its table can grow while the
// process runs, but never shrinks or changes history.
package timescale
