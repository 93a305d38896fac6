// Copyright 2021-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package confighelpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/cmd/genericconf"
)

const s3LoadTimeout = time.Minute

// S3Downloader is the part of manager.Downloader used to fetch configuration.
type S3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (n int64, err error)
}

// NewS3Downloader is replaced in tests.
var NewS3Downloader = func(ctx context.Context, config *genericconf.S3Config) (S3Downloader, error) {
	var client *s3.Client
	if config.AccessKey != "" {
		client = s3.New(s3.Options{
			Region:      config.Region,
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")),
		})
	} else {
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsConfig)
	}
	return manager.NewDownloader(client), nil
}

// BeginCommonParse loads defaults, then every configuration source in order
// of increasing precedence: files, S3, JSON string, environment and flags.
// Defaults that cannot be expressed as flags are given in defaults.
func BeginCommonParse(f *flag.FlagSet, args []string, defaults map[string]interface{}) (*koanf.Koanf, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() != 0 && f.ArgsLenAtDash() != 0 {
		return nil, fmt.Errorf("unexpected argument %q, use -- before the test command", f.Arg(0))
	}

	var k = koanf.New(".")
	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading defaults: %w", err)
		}
	}
	if err := applyOverrides(f, k); err != nil {
		return nil, err
	}
	return k, nil
}

func applyOverrides(f *flag.FlagSet, k *koanf.Koanf) error {
	if err := applyOverrideOverrides(f, k); err != nil {
		return err
	}

	for _, configFile := range k.Strings("conf.file") {
		if len(configFile) == 0 {
			continue
		}
		if err := k.Load(file.Provider(configFile), json.Parser()); err != nil {
			return fmt.Errorf("error loading local config file: %w", err)
		}
		if err := applyOverrideOverrides(f, k); err != nil {
			return err
		}
	}

	// S3 overrides local config files
	if k.String("conf.s3.bucket") != "" && k.String("conf.s3.object-key") != "" {
		if err := loadS3Variables(k); err != nil {
			return fmt.Errorf("error loading S3 settings: %w", err)
		}
		if err := applyOverrideOverrides(f, k); err != nil {
			return err
		}
	}
	return nil
}

// applyOverrideOverrides re-applies the sources that take precedence over
// every configuration file.
func applyOverrideOverrides(f *flag.FlagSet, k *koanf.Koanf) error {
	// Flags first, so the conf.* options are known
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return fmt.Errorf("error loading command line config: %w", err)
	}
	configString := k.String("conf.string")
	if len(configString) > 0 {
		if err := k.Load(rawbytes.Provider([]byte(configString)), json.Parser()); err != nil {
			return fmt.Errorf("error loading config string config: %w", err)
		}
	}
	if err := loadEnvironmentVariables(k); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	// Command line overrides everything
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return fmt.Errorf("error loading command line config: %w", err)
	}
	return nil
}

func loadEnvironmentVariables(k *koanf.Koanf) error {
	envPrefix := k.String("conf.env-prefix")
	if len(envPrefix) != 0 {
		return k.Load(env.Provider(envPrefix+"_", ".", func(s string) string {
			// FOO__BAR -> foo-bar to handle dash in config names
			s = strings.ReplaceAll(strings.ToLower(
				strings.TrimPrefix(s, envPrefix+"_")), "__", "-")
			return strings.ReplaceAll(s, "_", ".")
		}), nil)
	}
	return nil
}

func loadS3Variables(k *koanf.Koanf) error {
	config := genericconf.S3Config{
		AccessKey: k.String("conf.s3.access-key"),
		Bucket:    k.String("conf.s3.bucket"),
		ObjectKey: k.String("conf.s3.object-key"),
		Region:    k.String("conf.s3.region"),
		SecretKey: k.String("conf.s3.secret-key"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3LoadTimeout)
	defer cancel()
	downloader, err := NewS3Downloader(ctx, &config)
	if err != nil {
		return err
	}
	buffer := manager.NewWriteAtBuffer([]byte{})
	if _, err := downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(config.Bucket),
		Key:    aws.String(config.ObjectKey),
	}); err != nil {
		return fmt.Errorf("download failed for s3://%s/%s: %w", config.Bucket, config.ObjectKey, err)
	}
	log.Info("loaded configuration from S3", "bucket", config.Bucket, "key", config.ObjectKey)
	return k.Load(rawbytes.Provider(buffer.Bytes()), json.Parser())
}

func EndCommonParse(k *koanf.Koanf, config interface{}) error {
	decoderConfig := mapstructure.DecoderConfig{
		ErrorUnused: true,

		// Default values
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		Metadata:         nil,
		Result:           config,
		WeaklyTypedInput: true,
	}
	err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{DecoderConfig: &decoderConfig})
	if err != nil {
		return err
	}

	return nil
}

// DumpConfig overwrites the given keys, typically secrets, and prints the
// active configuration as JSON.
func DumpConfig(k *koanf.Koanf, extraOverrideFields map[string]interface{}) error {
	if err := k.Load(confmap.Provider(extraOverrideFields, "."), nil); err != nil {
		return fmt.Errorf("error removing extra parameters before dump: %w", err)
	}

	c, err := k.Marshal(json.Parser())
	if err != nil {
		return fmt.Errorf("unable to marshal config file to JSON: %w", err)
	}

	fmt.Println(string(c))
	return nil
}

func PrintErrorAndExit(err error, usage func(string)) {
	fmt.Fprintf(os.Stderr, "%s\n", err.Error())
	if usage != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Printf("\n")
		usage(os.Args[0])
	}
	os.Exit(1)
}
