package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"

	"github.com/aliyun/oss-credentials/pkg/aliyun/metadata"
	"github.com/aliyun/oss-credentials/pkg/credential"
	"github.com/aliyun/oss-credentials/pkg/version"
)

const (
	metadataLevelInstance = iota
	metadataLevelAttribute
)

func runGet(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("too many arguments")
	}
	p, err := ossClient.Provider()
	if err != nil {
		return err
	}
	var c *credential.Credentials
	if waitReady {
		c, err = ossClient.WaitCredentials(ctx)
	} else {
		c, err = ossClient.Credentials(ctx)
	}
	if err != nil {
		return fmt.Errorf("provider %s: %w", p.Name(), err)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(credentialsTable(c, time.Now())).Render()
}

func credentialsTable(c *credential.Credentials, now time.Time) pterm.TableData {
	expiration := "never"
	if !c.Expiration.IsZero() {
		expiration = fmt.Sprintf("%s (in %s)", c.Expiration.Format(time.RFC3339), c.Expiration.Sub(now).Truncate(time.Second))
	}
	token := "no"
	if c.UseSecurityToken() {
		token = fmt.Sprintf("yes (%d chars)", len(c.SecurityToken))
	}

	return pterm.TableData{
		{"Field", "Value"},
		{"provider", c.ProviderName},
		{"access_key_id", credential.MaskAccessKeyID(c.AccessKeyID)},
		{"temporary", fmt.Sprintf("%t", c.IsTemporary())},
		{"security_token", token},
		{"expiration", expiration},
		{"will_soon_expire", fmt.Sprintf("%t", c.WillSoonExpireAt(now))},
	}
}

func runSign(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no arguments")
	}
	if len(args) > 1 {
		return fmt.Errorf("too many arguments")
	}

	sig, err := ossClient.Sign(ctx, args[0])
	if err != nil {
		return err
	}
	pterm.Println(sig)
	return nil
}

func runMetadata(cmd *cobra.Command, args []string) error {
	leveledList := pterm.LeveledList{}

	instanceID, err := metadata.GetLocalInstanceID()
	if err != nil {
		return err
	}
	leveledList = append(leveledList, pterm.LeveledListItem{
		Level: metadataLevelInstance,
		Text:  printKV("instance", instanceID),
	})

	region, err := metadata.GetLocalRegion()
	if err != nil {
		return err
	}
	leveledList = append(leveledList, pterm.LeveledListItem{
		Level: metadataLevelAttribute,
		Text:  printKV("region", region),
	})

	zone, err := metadata.GetLocalZone()
	if err != nil {
		return err
	}
	leveledList = append(leveledList, pterm.LeveledListItem{
		Level: metadataLevelAttribute,
		Text:  printKV("zone", zone),
	})

	role, err := metadata.GetRAMRoleName(ctx)
	if err != nil {
		role = pterm.Red("!!!NOT FOUND")
	}
	leveledList = append(leveledList, pterm.LeveledListItem{
		Level: metadataLevelAttribute,
		Text:  printKV("ram_role", role),
	})

	tree := putils.TreeFromLeveledList(leveledList)
	return pterm.DefaultTree.
		WithTextStyle(&pterm.ThemeDefault.BarLabelStyle).
		WithRoot(tree).
		Render()
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	leveledList := pterm.LeveledList{
		{Level: 0, Text: version.Version},
		{Level: 1, Text: printKV("go", info.GoVersion)},
		{Level: 1, Text: printKV("platform", info.Platform)},
		{Level: 1, Text: printKV("commit", info.GitCommit)},
		{Level: 1, Text: printKV("build_date", info.BuildDate)},
	}
	return pterm.DefaultTree.WithRoot(putils.TreeFromLeveledList(leveledList)).Render()
}

func printKV(key, value string) string {
	return fmt.Sprintf("%s: %s", key, pterm.ThemeDefault.WarningMessageStyle.Sprint(value))
}
