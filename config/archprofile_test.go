package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArchProfile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "x86_64.yaml")
	content := `
arch: x86_64
toolchain:
  prefix: "x86_64-elf-"
  cc: "x86_64-elf-gcc"
cflags:
  - "-ffreestanding"
  - "-mno-red-zone"
emulator:
  binary: "qemu-system-x86_64"
  machine: "q35"
  memory_mb: 256
boot_protocol: multiboot2
firmware_type: bios
spec_file: x86_64-kernel-spec.md
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := LoadArchProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "x86_64", doc.Arch)
	assert.Equal(t, "x86_64-elf-gcc", doc.Toolchain.CC)
	assert.Equal(t, []string{"-ffreestanding", "-mno-red-zone"}, doc.CFlags)
	assert.Equal(t, "qemu-system-x86_64", doc.Emulator.Binary)
	assert.Equal(t, 256, doc.Emulator.MemoryMB)
	assert.Equal(t, "multiboot2", doc.BootProtocol)
	assert.Equal(t, "bios", doc.FirmwareType)
}

func TestLoadArchProfile_NotFound(t *testing.T) {
	_, err := LoadArchProfile("/non/existent/profile.yaml")
	assert.Error(t, err)
}

func TestLoadArchProfile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("arch: [unterminated"), 0644))

	_, err := LoadArchProfile(path)
	assert.Error(t, err)
}

func TestArchProfileDoc_ToValidateProfile(t *testing.T) {
	doc := &ArchProfileDoc{
		Arch: "aarch64",
		Emulator: EmulatorProfile{
			Binary:    "qemu-system-aarch64",
			Machine:   "virt",
			CPU:       "cortex-a72",
			MemoryMB:  256,
			ExtraArgs: []string{"-nographic"},
		},
	}
	profile := doc.ToValidateProfile()
	assert.Equal(t, "aarch64", profile.Arch)
	assert.Equal(t, "qemu-system-aarch64", profile.Binary)
	assert.Equal(t, "virt", profile.Machine)
	assert.Equal(t, "cortex-a72", profile.CPU)
	assert.Equal(t, 256, profile.MemoryMB)
	assert.Equal(t, []string{"-nographic"}, profile.ExtraArgs)
}
