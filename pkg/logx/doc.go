// Package logx is churchbot's logging layer over zerolog.
//
// Console records use a short timestamp and caller, the optional file sink
// writes JSON lines, and records at or above a configured level can be
// forwarded to the administrator's chat at a limited rate.
package logx
