// zap transfers a single file between a local and a remote host over SSH
// using multiple parallel SFTP streams.
package main

import "github.com/zapssh/zap/cmd"

func main() {
	cmd.Execute()
}
