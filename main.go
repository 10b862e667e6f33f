// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/appmenu/appmenu/cmd/appmenu"

func main() {
	cmd.Execute()
}
