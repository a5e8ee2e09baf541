package spatial
