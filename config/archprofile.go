package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/osforge/osforge/validate"
)

// ToolchainProfile names the cross-compilation binaries an agent's
// Makefile should invoke for a target architecture.
type ToolchainProfile struct {
	Prefix string `yaml:"prefix"` // e.g. "x86_64-elf-", "aarch64-linux-gnu-"
	CC     string `yaml:"cc"`
	AS     string `yaml:"as"`
	LD     string `yaml:"ld"`
}

// EmulatorProfile is the subset of an architecture profile the test
// validator needs to boot a kernel image under QEMU.
type EmulatorProfile struct {
	Binary    string   `yaml:"binary"`
	Machine   string   `yaml:"machine"`
	CPU       string   `yaml:"cpu"`
	MemoryMB  int      `yaml:"memory_mb"`
	ExtraArgs []string `yaml:"extra_args"`
}

// ArchProfileDoc is the full per-architecture profile loaded from
// config/profiles/<arch>.yaml: everything an architect or developer
// agent needs to target a given architecture correctly, plus the
// narrower validate.ArchProfile the test runner consumes.
type ArchProfileDoc struct {
	Arch             string           `yaml:"arch"`
	Toolchain        ToolchainProfile `yaml:"toolchain"`
	AssemblerSyntax  string           `yaml:"assembler_syntax"` // "intel", "att", "gnu"
	CFlags           []string         `yaml:"cflags"`
	Emulator         EmulatorProfile  `yaml:"emulator"`
	BootProtocol     string           `yaml:"boot_protocol"` // e.g. "multiboot2", "linux-boot-protocol"
	FirmwareType     string           `yaml:"firmware_type"` // e.g. "bios", "uefi", "none"
	SpecFile         string           `yaml:"spec_file"`     // requirements document name within SpecRoot
}

// LoadArchProfile reads an architecture profile document from path.
func LoadArchProfile(path string) (*ArchProfileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arch profile: %w", err)
	}
	var doc ArchProfileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse arch profile: %w", err)
	}
	return &doc, nil
}

// ToValidateProfile narrows the document to the fields
// validate.TestValidator needs to invoke QEMU.
func (d *ArchProfileDoc) ToValidateProfile() validate.ArchProfile {
	return validate.ArchProfile{
		Arch:      d.Arch,
		Binary:    d.Emulator.Binary,
		Machine:   d.Emulator.Machine,
		CPU:       d.Emulator.CPU,
		MemoryMB:  d.Emulator.MemoryMB,
		ExtraArgs: d.Emulator.ExtraArgs,
	}
}
