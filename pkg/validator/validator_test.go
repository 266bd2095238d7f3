package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type target struct {
	Host string `json:"host" validate:"required,remotehost"`
	Port int    `json:"port" validate:"min=1,max=65535"`
	Path string `json:"path" validate:"required,remotepath"`
}

func TestValidateStructSuccess(t *testing.T) {
	require.NoError(t, ValidateStruct(target{Host: "example.com", Port: 22, Path: "/data/file.bin"}))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(target{Host: "bad host", Port: 70000, Path: "relative"})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	require.Equal(t, "remotehost", fields["host"])
	require.Equal(t, "max", fields["port"])
	require.Equal(t, "remotepath", fields["path"])
	require.Contains(t, err.Error(), "port failed on max=65535")
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("sftpscheme", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "sftp"
	})
	require.NoError(t, err)

	type custom struct {
		Scheme string `validate:"sftpscheme"`
	}

	require.NoError(t, ValidateStruct(custom{Scheme: "sftp"}))
	require.Error(t, ValidateStruct(custom{Scheme: "ftp"}))
}
