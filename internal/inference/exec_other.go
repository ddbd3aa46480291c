//go:build !unix

package inference

import "os/exec"

func configureProcessGroup(*exec.Cmd) {}
