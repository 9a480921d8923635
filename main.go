// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/execproxy/execproxy/cmd/execproxy"

func main() {
	cmd.Execute()
}
