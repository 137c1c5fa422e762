package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/output"
)

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Generate an SEO blog post",
	Long: `Generate an SEO blog post from a topic and keyword list.

Questions and internal links are one per line and can be read from files
("-" reads stdin). Markdown output is ready to publish; --out-dir names the
file after the generated slug.`,
	Example: `  pippora blog --topic "Renaissance pet portraits" --keywords "pet portrait, custom art"
  pippora blog --topic "Dog art" --keywords "dog painting" --questions-file paa.txt --output-format markdown --out-dir posts/`,
	RunE: runBlog,
}

func init() {
	rootCmd.AddCommand(blogCmd)

	blogCmd.Flags().String("topic", "", "Post topic (required)")
	blogCmd.Flags().String("keywords", "", "Comma-separated target keywords (required)")
	blogCmd.Flags().Int("word-count", 0, "Target word count (default from config)")
	blogCmd.Flags().String("tone", "", "Writing tone (default from config)")
	blogCmd.Flags().String("related", "", "Comma-separated related searches")
	blogCmd.Flags().String("questions", "", "People-also-ask questions, one per line")
	blogCmd.Flags().String("questions-file", "", "Read questions from file")
	blogCmd.Flags().String("links", "", "Internal links, one per line")
	blogCmd.Flags().String("links-file", "", "Read internal links from file")
	blogCmd.Flags().Bool("include-intro", false, "Write a standalone intro of up to 500 words")
	addOutputFlags(blogCmd, "table|json|markdown")
}

func runBlog(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	req, err := blogRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := buildServices(cmd.Context(), cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer svc.close()

	post, err := svc.blog.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatPost(post)
	if err != nil {
		return err
	}
	name := post.Slug
	if name == "" {
		name = req.Topic
	}
	return writeOutput(cmd, name, format, rendered)
}

func blogRequestFromFlags(cmd *cobra.Command) (blog.Request, error) {
	flags := cmd.Flags()
	topic, _ := flags.GetString("topic")
	keywords, _ := flags.GetString("keywords")
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(keywords) == "" {
		return blog.Request{}, errors.New("--topic and --keywords are required")
	}

	wordCount, _ := flags.GetInt("word-count")
	if wordCount < 0 {
		return blog.Request{}, fmt.Errorf("--word-count must be positive, got %d", wordCount)
	}
	tone, _ := flags.GetString("tone")
	related, _ := flags.GetString("related")
	includeIntro, _ := flags.GetBool("include-intro")

	questions, _ := flags.GetString("questions")
	questionsFile, _ := flags.GetString("questions-file")
	paa, err := readTextInput(questions, questionsFile)
	if err != nil {
		return blog.Request{}, fmt.Errorf("questions: %w", err)
	}

	links, _ := flags.GetString("links")
	linksFile, _ := flags.GetString("links-file")
	internal, err := readTextInput(links, linksFile)
	if err != nil {
		return blog.Request{}, fmt.Errorf("links: %w", err)
	}

	return blog.Request{
		Topic:           topic,
		Keywords:        keywords,
		WordCount:       wordCount,
		Tone:            tone,
		InternalLinks:   internal,
		PeopleAlsoAsk:   paa,
		RelatedSearches: related,
		IncludeIntro:    includeIntro,
	}, nil
}
