package docstore

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

// GrammarRegistry dispatches URI extensions to a lazily-initialized
// tree-sitter language, following a familiar registerLazyInit/setupX
// pattern. Each language's *tree_sitter.Parser is created once and reused;
// go-tree-sitter parsers are not safe for concurrent Parse calls, so
// GrammarRegistry serializes access per extension.
type GrammarRegistry struct {
	mu       sync.Mutex
	parsers  map[string]*tree_sitter.Parser
	dialects map[string]Dialect
	setup    map[string]func() *tree_sitter.Language
}

// NewGrammarRegistry registers every grammar this module's domain stack
// exercises: the real Zig grammar for source and data-literal documents,
// plus grammars for foreign-language files a build graph may still
// reference (e.g. a C source or header, parsed with tree-sitter-cpp).
func NewGrammarRegistry() *GrammarRegistry {
	r := &GrammarRegistry{
		parsers:  make(map[string]*tree_sitter.Parser),
		dialects: make(map[string]Dialect),
		setup:    make(map[string]func() *tree_sitter.Language),
	}

	r.register(".zig", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_zig.Language())
	})
	r.register(".zon", DialectDataLiteral, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_zig.Language())
	})

	r.register(".c", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	})
	r.register(".h", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	})
	r.register(".cpp", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	})

	r.register(".go", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_go.Language())
	})
	r.register(".java", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_java.Language())
	})
	r.register(".js", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	})
	r.register(".py", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	})
	r.register(".rs", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_rust.Language())
	})
	r.register(".cs", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	})
	r.register(".php", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	})
	r.register(".ts", DialectSource, func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	})

	return r
}

func (r *GrammarRegistry) register(ext string, dialect Dialect, setup func() *tree_sitter.Language) {
	r.dialects[ext] = dialect
	r.setup[ext] = setup
}

// DialectFor reports the dialect registered for ext, defaulting to
// DialectSource for unrecognized extensions (only two dialects exist;
// anything not explicitly data-literal is source).
func (r *GrammarRegistry) DialectFor(ext string) Dialect {
	if d, ok := r.dialects[ext]; ok {
		return d
	}
	return DialectSource
}

// Parse parses content using the grammar registered for ext, lazily
// constructing and caching the *tree_sitter.Parser on first use.
func (r *GrammarRegistry) Parse(ext string, content []byte) (*ParsedTree, error) {
	r.mu.Lock()
	parser, ok := r.parsers[ext]
	if !ok {
		setup, known := r.setup[ext]
		if !known {
			r.mu.Unlock()
			return nil, fmt.Errorf("docstore: no grammar registered for extension %q", ext)
		}
		lang := setup()
		parser = tree_sitter.NewParser()
		if err := parser.SetLanguage(lang); err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("docstore: setting language for %q: %w", ext, err)
		}
		r.parsers[ext] = parser
	}
	tree := parser.Parse(content, nil)
	r.mu.Unlock()

	if tree == nil {
		return nil, fmt.Errorf("docstore: parse of extension %q produced no tree", ext)
	}

	return &ParsedTree{
		Dialect: r.DialectFor(ext),
		Tree:    tree,
		Source:  content,
	}, nil
}
