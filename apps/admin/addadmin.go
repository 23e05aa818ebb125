package main

import (
	"context"
	"time"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/institution"
)

// addAdmin registers an institution admin account.
func (cli *commandLine) addAdmin(school, email, pwd string) error {
	ctx := context.Background()

	inst := institution.Institution{
		SchoolName: core.CleanString(school),
		AdminEmail: core.CleanString(email, true /* lower */),
		Role:       institution.Role,
		CreatedAt:  time.Now().UTC(),
	}
	if err := cli.instRepo.CheckEmailUniqueness(ctx, inst.AdminEmail); err != nil {
		return err
	}
	if err := inst.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.instRepo.CreateInstitution(ctx, inst); err != nil {
		return err
	}
	return nil
}
