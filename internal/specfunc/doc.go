// Package specfunc provides the special functions needed by the analytic
// Bragg curve: the factorial of a real argument and the parabolic-cylinder
// function D_v.
package specfunc
