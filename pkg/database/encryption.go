package database

import (
	"github.com/firdasafridi/gocrypt"
)

func newCrypt(secretKey string) (*gocrypt.Option, error) {
	aesOpt, err := gocrypt.NewAESOpt(secretKey)
	if err != nil {
		return nil, err
	}
	return &gocrypt.Option{AESOpt: aesOpt}, nil
}

// EncryptStruct encrypts the fields tagged with gocrypt using the provided secret key.
func EncryptStruct[T any](entity T, secretKey string) (T, error) {
	opt, err := newCrypt(secretKey)
	if err != nil {
		return entity, err
	}

	if err := gocrypt.New(opt).Encrypt(&entity); err != nil {
		return entity, err
	}
	return entity, nil
}

// DecryptStruct decrypts the fields tagged with gocrypt using the provided secret key.
func DecryptStruct[T any](entity T, secretKey string) (T, error) {
	opt, err := newCrypt(secretKey)
	if err != nil {
		return entity, err
	}

	if err := gocrypt.New(opt).Decrypt(&entity); err != nil {
		return entity, err
	}
	return entity, nil
}
