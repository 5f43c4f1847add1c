package migrate

import "testing"

func TestSplitStatements(t *testing.T) {
	body := `
create table a (id text);
insert into a values ('x;y');
create index a_idx on a (id);
`
	stmts := splitStatements(body)
	if len(stmts) != 3 {
		t.Fatalf("statements = %d, want 3: %q", len(stmts), stmts)
	}
}

func TestSplitStatementsTrailingWithoutSemicolon(t *testing.T) {
	stmts := splitStatements("create table a (id text)")
	if len(stmts) != 1 {
		t.Fatalf("statements = %d, want 1", len(stmts))
	}
}
