// package ui holds the console styles used by the command line
package ui
