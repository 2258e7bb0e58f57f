package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m1k1o/go-mediapipe/internal/storage"
)

const (
	HardwareAuto = "auto"
	HardwareOn   = "on"
	HardwareOff  = "off"
)

type Pipeline struct {
	FFmpegBinary  string
	FFprobeBinary string

	Hardware        string // auto, on or off
	HardwareCodec   string
	MaxParallel     int
	SegmentDuration int

	WorkDir           string
	UploadConcurrency int

	S3 storage.S3Config

	PostgresDSN  string
	EnsureSchema bool
}

func (Pipeline) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("ffmpeg-binary", "ffmpeg", "path to the ffmpeg binary")
	if err := viper.BindPFlag("ffmpeg-binary", cmd.PersistentFlags().Lookup("ffmpeg-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("ffprobe-binary", "ffprobe", "path to the ffprobe binary")
	if err := viper.BindPFlag("ffprobe-binary", cmd.PersistentFlags().Lookup("ffprobe-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("hardware", HardwareAuto, "hardware encoding: auto, on or off")
	if err := viper.BindPFlag("hardware", cmd.PersistentFlags().Lookup("hardware")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("hardware-codec", "h264_nvenc", "ffmpeg hardware video encoder")
	if err := viper.BindPFlag("hardware-codec", cmd.PersistentFlags().Lookup("hardware-codec")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("max-parallel", 3, "concurrent hardware encodes")
	if err := viper.BindPFlag("max-parallel", cmd.PersistentFlags().Lookup("max-parallel")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("segment-duration", 4, "target HLS segment duration in seconds")
	if err := viper.BindPFlag("segment-duration", cmd.PersistentFlags().Lookup("segment-duration")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("workdir", "", "directory for temporary encoder output")
	if err := viper.BindPFlag("workdir", cmd.PersistentFlags().Lookup("workdir")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("upload-concurrency", 8, "parallel object uploads")
	if err := viper.BindPFlag("upload-concurrency", cmd.PersistentFlags().Lookup("upload-concurrency")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("s3.bucket", "", "object storage bucket")
	if err := viper.BindPFlag("s3.bucket", cmd.PersistentFlags().Lookup("s3.bucket")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("s3.region", "auto", "object storage region")
	if err := viper.BindPFlag("s3.region", cmd.PersistentFlags().Lookup("s3.region")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("s3.endpoint", "", "custom object storage endpoint")
	if err := viper.BindPFlag("s3.endpoint", cmd.PersistentFlags().Lookup("s3.endpoint")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("s3.access-key", "", "object storage access key")
	if err := viper.BindPFlag("s3.access-key", cmd.PersistentFlags().Lookup("s3.access-key")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("s3.secret-key", "", "object storage secret key")
	if err := viper.BindPFlag("s3.secret-key", cmd.PersistentFlags().Lookup("s3.secret-key")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("s3.path-style", false, "use path style bucket addressing")
	if err := viper.BindPFlag("s3.path-style", cmd.PersistentFlags().Lookup("s3.path-style")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("postgres.dsn", "", "metadata database connection string")
	if err := viper.BindPFlag("postgres.dsn", cmd.PersistentFlags().Lookup("postgres.dsn")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("postgres.ensure-schema", true, "create the videos table when missing")
	if err := viper.BindPFlag("postgres.ensure-schema", cmd.PersistentFlags().Lookup("postgres.ensure-schema")); err != nil {
		return err
	}

	return nil
}

func (p *Pipeline) Set() {
	p.FFmpegBinary = viper.GetString("ffmpeg-binary")
	p.FFprobeBinary = viper.GetString("ffprobe-binary")

	p.Hardware = viper.GetString("hardware")
	p.HardwareCodec = viper.GetString("hardware-codec")
	p.MaxParallel = viper.GetInt("max-parallel")
	p.SegmentDuration = viper.GetInt("segment-duration")

	p.WorkDir = viper.GetString("workdir")
	p.UploadConcurrency = viper.GetInt("upload-concurrency")

	p.S3 = storage.S3Config{
		Bucket:    viper.GetString("s3.bucket"),
		Region:    viper.GetString("s3.region"),
		Endpoint:  viper.GetString("s3.endpoint"),
		AccessKey: viper.GetString("s3.access-key"),
		SecretKey: viper.GetString("s3.secret-key"),
		PathStyle: viper.GetBool("s3.path-style"),
	}

	p.PostgresDSN = viper.GetString("postgres.dsn")
	p.EnsureSchema = viper.GetBool("postgres.ensure-schema")
}

func (p *Pipeline) Validate() error {
	switch p.Hardware {
	case HardwareAuto, HardwareOn, HardwareOff:
	default:
		return fmt.Errorf("invalid hardware mode %q", p.Hardware)
	}
	if p.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	if p.PostgresDSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	return nil
}
