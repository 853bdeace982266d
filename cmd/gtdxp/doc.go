// Command gtdxp runs the GTDXP-OS terminal client.
//
// Without a subcommand it opens the full-screen UI. The auth, toasts and
// config subcommands work without a terminal.
package main
